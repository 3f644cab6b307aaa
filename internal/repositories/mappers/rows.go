package mappers

import (
	"github.com/bionicotaku/lingo-services-reading/internal/models/po"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// EngagementCountersRow 对应 reading.engagement_counters 的查询结果。
// Clamped 仅由增量写入返回。
type EngagementCountersRow struct {
	EntityType    string
	EntityID      uuid.UUID
	ViewCount     int64
	LikeCount     int64
	BookmarkCount int64
	FollowerCount int64
	RatingSum     int64
	RatingCount   int64
	UpdatedAt     pgtype.Timestamptz
	Clamped       bool
}

// EngagementCountersFromRow 转换计数器行。
func EngagementCountersFromRow(row EngagementCountersRow) *po.EngagementCounters {
	return &po.EngagementCounters{
		EntityType:    po.EntityType(row.EntityType),
		EntityID:      row.EntityID,
		ViewCount:     row.ViewCount,
		LikeCount:     row.LikeCount,
		BookmarkCount: row.BookmarkCount,
		FollowerCount: row.FollowerCount,
		RatingSum:     row.RatingSum,
		RatingCount:   row.RatingCount,
		UpdatedAt:     mustTimestamp(row.UpdatedAt),
		Clamped:       row.Clamped,
	}
}

// ActivityProfileRow 对应 reading.user_activity_profiles 的一行。
type ActivityProfileRow struct {
	UserID                 uuid.UUID
	TotalChaptersCompleted int64
	ReadingStreak          int32
	ActivityDates          []string
	LastReadAt             pgtype.Timestamptz
	LastReadChapterID      pgtype.UUID
	UpdatedAt              pgtype.Timestamptz
}

// ActivityProfileFromRow 转换活跃档案，ActivityDates 为 NULL 时返回空切片。
func ActivityProfileFromRow(row ActivityProfileRow) *po.UserActivityProfile {
	dates := row.ActivityDates
	if dates == nil {
		dates = []string{}
	}
	return &po.UserActivityProfile{
		UserID:                 row.UserID,
		TotalChaptersCompleted: row.TotalChaptersCompleted,
		ReadingStreak:          row.ReadingStreak,
		ActivityDates:          dates,
		LastReadAt:             timestampPtr(row.LastReadAt),
		LastReadChapterID:      uuidPtr(row.LastReadChapterID),
		UpdatedAt:              mustTimestamp(row.UpdatedAt),
	}
}

// ActivityRecordRow 对应 reading.activity_records 的一行。
type ActivityRecordRow struct {
	RecordID        uuid.UUID
	UserID          uuid.UUID
	SeriesID        uuid.UUID
	ChapterID       uuid.UUID
	ProgressPercent int16
	TouchedAt       pgtype.Timestamptz
}

// ActivityRecordFromRow 转换阅读记录。
func ActivityRecordFromRow(row ActivityRecordRow) po.ActivityRecord {
	return po.ActivityRecord{
		RecordID:        row.RecordID,
		UserID:          row.UserID,
		SeriesID:        row.SeriesID,
		ChapterID:       row.ChapterID,
		ProgressPercent: row.ProgressPercent,
		TouchedAt:       mustTimestamp(row.TouchedAt),
	}
}

// CompletionMarkRow 是完成标记 upsert 的返回值。
type CompletionMarkRow struct {
	UserID           uuid.UUID
	ChapterID        uuid.UUID
	SeriesID         uuid.UUID
	ProgressPercent  int16
	FirstCompletedAt pgtype.Timestamptz
	LastCompletedAt  pgtype.Timestamptz
	Inserted         bool
}

// CompletionMarkFromRow 转换完成标记。
func CompletionMarkFromRow(row CompletionMarkRow) *po.CompletionMark {
	return &po.CompletionMark{
		UserID:           row.UserID,
		ChapterID:        row.ChapterID,
		SeriesID:         row.SeriesID,
		ProgressPercent:  row.ProgressPercent,
		FirstCompletedAt: mustTimestamp(row.FirstCompletedAt),
		LastCompletedAt:  mustTimestamp(row.LastCompletedAt),
		Inserted:         row.Inserted,
	}
}

// SeriesRow 对应 reading.series 的一行。
type SeriesRow struct {
	SeriesID  uuid.UUID
	CreatorID uuid.UUID
	Title     string
	Status    string
	CreatedAt pgtype.Timestamptz
}

// SeriesFromRow 转换连载基础信息。
func SeriesFromRow(row SeriesRow) *po.Series {
	return &po.Series{
		SeriesID:  row.SeriesID,
		CreatorID: row.CreatorID,
		Title:     row.Title,
		Status:    po.SeriesStatus(row.Status),
		CreatedAt: mustTimestamp(row.CreatedAt),
	}
}

// RankCandidateRow 是排行查询的一行，计数列缺失时由 SQL 补 0。
type RankCandidateRow struct {
	EntityID      uuid.UUID
	Title         string
	ViewCount     int64
	BookmarkCount int64
	FollowerCount int64
	RatingSum     int64
	RatingCount   int64
	CreatedAt     pgtype.Timestamptz
}

// RankCandidateFromRow 转换排行候选。
func RankCandidateFromRow(row RankCandidateRow) po.RankCandidate {
	return po.RankCandidate{
		EntityID:      row.EntityID,
		Title:         row.Title,
		ViewCount:     row.ViewCount,
		BookmarkCount: row.BookmarkCount,
		FollowerCount: row.FollowerCount,
		RatingSum:     row.RatingSum,
		RatingCount:   row.RatingCount,
		CreatedAt:     mustTimestamp(row.CreatedAt),
	}
}
