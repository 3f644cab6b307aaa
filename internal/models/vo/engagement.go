package vo

import "github.com/google/uuid"

// LikeToggled 是点赞翻转后的状态。
type LikeToggled struct {
	ChapterID uuid.UUID `json:"chapter_id"`
	Liked     bool      `json:"liked"`
	LikeCount int64     `json:"like_count"`
}

// ViewRecorded 是一次浏览上报的结果。Counted 为 false 表示重复浏览被忽略。
type ViewRecorded struct {
	ChapterID uuid.UUID `json:"chapter_id"`
	Counted   bool      `json:"counted"`
	ViewCount int64     `json:"view_count"`
}

// FollowChanged 是关注或取关后的状态。
type FollowChanged struct {
	TargetID      uuid.UUID `json:"target_id"`
	TargetType    string    `json:"target_type"`
	Following     bool      `json:"following"`
	Changed       bool      `json:"changed"`
	FollowerCount int64     `json:"follower_count"`
}

// BookmarkChanged 是收藏或取消收藏后的状态。
type BookmarkChanged struct {
	SeriesID      uuid.UUID `json:"series_id"`
	Bookmarked    bool      `json:"bookmarked"`
	Changed       bool      `json:"changed"`
	BookmarkCount int64     `json:"bookmark_count"`
}

// SeriesRated 是评分写入后的连载评分汇总。
type SeriesRated struct {
	SeriesID      uuid.UUID `json:"series_id"`
	Score         int16     `json:"score"`
	PreviousScore int16     `json:"previous_score,omitempty"`
	RatingCount   int64     `json:"rating_count"`
	AverageRating float64   `json:"average_rating"`
}
