package po

import (
	"time"

	"github.com/google/uuid"
)

// EntityType 标识计数器所属实体的类别。
type EntityType string

// 计数实体类别
const (
	EntityChapter EntityType = "chapter"
	EntitySeries  EntityType = "series"
	EntityCreator EntityType = "creator"
)

// EngagementCounters 表示 reading.engagement_counters 记录。
type EngagementCounters struct {
	EntityType    EntityType
	EntityID      uuid.UUID
	ViewCount     int64
	LikeCount     int64
	BookmarkCount int64
	FollowerCount int64
	RatingSum     int64
	RatingCount   int64
	UpdatedAt     time.Time
	// Clamped 为 true 表示本次增量会把某个计数器减到负数，已被截断为 0。
	Clamped bool
}

// AverageRating 返回平均评分，没有评分时为 0。
func (c EngagementCounters) AverageRating() float64 {
	if c.RatingCount <= 0 {
		return 0
	}
	return float64(c.RatingSum) / float64(c.RatingCount)
}

// RankCandidate 是排行榜计算的输入行：计数器加上实体创建时间。
type RankCandidate struct {
	EntityID      uuid.UUID
	Title         string
	ViewCount     int64
	BookmarkCount int64
	FollowerCount int64
	RatingSum     int64
	RatingCount   int64
	CreatedAt     time.Time
}
