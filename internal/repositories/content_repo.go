package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository 只读访问章节、连载与用户的引用数据。
// 这些表由平台的内容管理侧维护，本服务不负责写入。
type ContentRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewContentRepository 构造内容引用仓储。
func NewContentRepository(db *pgxpool.Pool, logger log.Logger) *ContentRepository {
	return &ContentRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const getChapterRefSQL = `
SELECT c.chapter_id, c.series_id, s.creator_id
  FROM reading.chapters c
  JOIN reading.series s ON s.series_id = c.series_id
 WHERE c.chapter_id = $1`

// GetChapterRef 返回章节及其所属连载、作者。
func (r *ContentRepository) GetChapterRef(ctx context.Context, sess txmanager.Session, chapterID uuid.UUID) (*po.ChapterRef, error) {
	var ref po.ChapterRef
	err := conn(r.db, sess).QueryRow(ctx, getChapterRefSQL, chapterID).Scan(&ref.ChapterID, &ref.SeriesID, &ref.CreatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChapterNotFound
		}
		return nil, fmt.Errorf("get chapter ref: %w", err)
	}
	return &ref, nil
}

const getSeriesSQL = `
SELECT series_id, creator_id, title, status, created_at
  FROM reading.series
 WHERE series_id = $1`

// GetSeries 返回连载基础信息。
func (r *ContentRepository) GetSeries(ctx context.Context, sess txmanager.Session, seriesID uuid.UUID) (*po.Series, error) {
	var rec mappers.SeriesRow
	err := conn(r.db, sess).QueryRow(ctx, getSeriesSQL, seriesID).Scan(&rec.SeriesID, &rec.CreatorID, &rec.Title, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return mappers.SeriesFromRow(rec), nil
}

// UserExists 判断用户是否存在。
func (r *ContentRepository) UserExists(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (bool, error) {
	var exists bool
	err := conn(r.db, sess).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reading.users WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// CreatorSeriesStats 是作者名下单部连载的状态与累计浏览量。
type CreatorSeriesStats struct {
	SeriesID  uuid.UUID
	Status    po.SeriesStatus
	ViewCount int64
}

const listCreatorSeriesStatsSQL = `
SELECT s.series_id, s.status, COALESCE(c.view_count, 0)
  FROM reading.series s
  LEFT JOIN reading.engagement_counters c
         ON c.entity_type = 'series' AND c.entity_id = s.series_id
 WHERE s.creator_id = $1
 ORDER BY s.created_at DESC, s.series_id`

// ListCreatorSeriesStats 返回作者名下所有连载及其浏览量，用于创作者分析汇总。
func (r *ContentRepository) ListCreatorSeriesStats(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) ([]CreatorSeriesStats, error) {
	rows, err := conn(r.db, sess).Query(ctx, listCreatorSeriesStatsSQL, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list creator series stats: %w", err)
	}
	defer rows.Close()

	var out []CreatorSeriesStats
	for rows.Next() {
		var (
			item   CreatorSeriesStats
			status string
		)
		if err := rows.Scan(&item.SeriesID, &status, &item.ViewCount); err != nil {
			return nil, fmt.Errorf("scan creator series stats: %w", err)
		}
		item.Status = po.SeriesStatus(status)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator series stats: %w", err)
	}
	return out, nil
}
