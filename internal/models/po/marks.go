package po

import (
	"time"

	"github.com/google/uuid"
)

// FollowTargetType 表示关注对象类别。
type FollowTargetType string

// 关注对象类别
const (
	FollowTargetCreator FollowTargetType = "creator"
	FollowTargetSeries  FollowTargetType = "series"
)

// LikeMark 表示 reading.like_marks 的一行，存在即已点赞。
type LikeMark struct {
	UserID    uuid.UUID
	ChapterID uuid.UUID
	CreatedAt time.Time
}

// RatingMark 表示 reading.rating_marks 的一行。
// PreviousScore 仅在 upsert 返回时填充，首次评分时为 0。
type RatingMark struct {
	UserID        uuid.UUID
	SeriesID      uuid.UUID
	Score         int16
	PreviousScore int16
	Inserted      bool
	UpdatedAt     time.Time
}
