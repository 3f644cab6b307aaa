// Package vo 定义视图对象（View Objects），用于向上层传递业务数据。
// VO 对象由 Service 层返回，经 Views 层转换为 HTTP 响应。
package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/google/uuid"
)

// ProgressRecorded 是一次 RecordProgress 的结果。
type ProgressRecorded struct {
	UserID          uuid.UUID `json:"user_id"`
	SeriesID        uuid.UUID `json:"series_id"`
	ChapterID       uuid.UUID `json:"chapter_id"`
	ProgressPercent int16     `json:"progress_percent"`

	// CompletedNow 表示本次请求触发了该章节的首次完成。
	CompletedNow bool `json:"completed_now"`
	// Duplicate 表示章节此前已完成，本次未推进计数器。
	Duplicate bool `json:"duplicate"`

	ReadingStreak          int32 `json:"reading_streak"`
	TotalChaptersCompleted int64 `json:"total_chapters_completed"`

	RecordedAt time.Time `json:"recorded_at"`
}

// ProfileStats 是用户阅读画像的对外视图。
type ProfileStats struct {
	UserID                 uuid.UUID  `json:"user_id"`
	TotalChaptersCompleted int64      `json:"total_chapters_completed"`
	ReadingStreak          int32      `json:"reading_streak"`
	ActiveDays             int        `json:"active_days"`
	LastReadAt             *time.Time `json:"last_read_at,omitempty"`
	LastReadChapterID      *uuid.UUID `json:"last_read_chapter_id,omitempty"`
	Following              int64      `json:"following"`
	Followers              int64      `json:"followers"`
}

// NewProfileStats 由画像与关注数构造视图，streak 以调用方重新计算的值为准。
func NewProfileStats(profile *po.UserActivityProfile, streak int32, following, followers int64) *ProfileStats {
	if profile == nil {
		return nil
	}
	return &ProfileStats{
		UserID:                 profile.UserID,
		TotalChaptersCompleted: profile.TotalChaptersCompleted,
		ReadingStreak:          streak,
		ActiveDays:             len(profile.ActivityDates),
		LastReadAt:             profile.LastReadAt,
		LastReadChapterID:      profile.LastReadChapterID,
		Following:              following,
		Followers:              followers,
	}
}

// ContinueReadingItem 是"继续阅读"列表中的一项，每部连载至多一项。
type ContinueReadingItem struct {
	SeriesID        uuid.UUID `json:"series_id"`
	ChapterID       uuid.UUID `json:"chapter_id"`
	ProgressPercent int16     `json:"progress_percent"`
	LastTouchedAt   time.Time `json:"last_touched_at"`
}
