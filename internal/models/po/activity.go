package po

import (
	"time"

	"github.com/google/uuid"
)

// ActivityRecord 表示 reading.activity_records 的一行，只追加、不修改。
type ActivityRecord struct {
	RecordID        uuid.UUID `db:"record_id"`
	UserID          uuid.UUID `db:"user_id"`
	SeriesID        uuid.UUID `db:"series_id"`
	ChapterID       uuid.UUID `db:"chapter_id"`
	ProgressPercent int16     `db:"progress_percent"`
	TouchedAt       time.Time `db:"touched_at"`
}

// CompletionMark 表示 reading.completion_marks 的一行。
// Inserted 为 true 表示本次写入是该 (user, chapter) 的首次完成。
type CompletionMark struct {
	UserID           uuid.UUID
	ChapterID        uuid.UUID
	SeriesID         uuid.UUID
	ProgressPercent  int16
	FirstCompletedAt time.Time
	LastCompletedAt  time.Time
	Inserted         bool
}

// UserActivityProfile 表示 reading.user_activity_profiles 的一行。
//
// ActivityDates 是 ReadingStreak 的真实来源（YYYY-MM-DD，按时间倒序，至多 365 条）；
// ReadingStreak 只是缓存，两者不一致时以日期集合重新计算的结果为准。
type UserActivityProfile struct {
	UserID                 uuid.UUID
	TotalChaptersCompleted int64
	ReadingStreak          int32
	ActivityDates          []string
	LastReadAt             *time.Time
	LastReadChapterID      *uuid.UUID
	UpdatedAt              time.Time
}
