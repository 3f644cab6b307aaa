package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/google/uuid"
)

// RankedEntry 是排行榜中的一项。Score 为主排序键（浏览量）。
type RankedEntry struct {
	Rank          int       `json:"rank"`
	EntityID      uuid.UUID `json:"entity_id"`
	Title         string    `json:"title"`
	Score         int64     `json:"score"`
	ViewCount     int64     `json:"view_count"`
	BookmarkCount int64     `json:"bookmark_count"`
	FollowerCount int64     `json:"follower_count"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewRankedEntry 从候选行构造排行项。
func NewRankedEntry(rank int, c po.RankCandidate) RankedEntry {
	var avg float64
	if c.RatingCount > 0 {
		avg = float64(c.RatingSum) / float64(c.RatingCount)
	}
	return RankedEntry{
		Rank:          rank,
		EntityID:      c.EntityID,
		Title:         c.Title,
		Score:         c.ViewCount,
		ViewCount:     c.ViewCount,
		BookmarkCount: c.BookmarkCount,
		FollowerCount: c.FollowerCount,
		AverageRating: avg,
		CreatedAt:     c.CreatedAt,
	}
}

// RankingList 是一次排行查询的结果。
// Window 原样回显调用方提供的窗口提示，不影响排序。
type RankingList struct {
	Kind        string        `json:"kind"`
	Entity      string        `json:"entity"`
	Window      string        `json:"window"`
	Entries     []RankedEntry `json:"entries"`
	GeneratedAt time.Time     `json:"generated_at"`
	// Degraded 为 true 表示存储读取失败，结果为空列表。
	Degraded bool `json:"degraded,omitempty"`
}

// CreatorAnalytics 是创作者维度的汇总数据。
type CreatorAnalytics struct {
	CreatorID         uuid.UUID `json:"creator_id"`
	TotalViews        int64     `json:"total_views"`
	Followers         int64     `json:"followers"`
	CoinsEarned       int64     `json:"coins_earned"`
	ActiveSeriesCount int64     `json:"active_series_count"`
	Degraded          bool      `json:"degraded,omitempty"`
}
