package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RankingRepository 读取排行候选集。
// SQL 已按排行规则排序并截断，Service 层仍会以相同规则做一次确定性排序。
type RankingRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewRankingRepository 构造排行仓储。
func NewRankingRepository(db *pgxpool.Pool, logger log.Logger) *RankingRepository {
	return &RankingRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const listTrendingSeriesSQL = `
SELECT s.series_id, s.title,
       COALESCE(c.view_count, 0), COALESCE(c.bookmark_count, 0), COALESCE(c.follower_count, 0),
       COALESCE(c.rating_sum, 0), COALESCE(c.rating_count, 0),
       s.created_at
  FROM reading.series s
  LEFT JOIN reading.engagement_counters c
         ON c.entity_type = 'series' AND c.entity_id = s.series_id
 WHERE s.status <> 'draft'
 ORDER BY COALESCE(c.view_count, 0) DESC, COALESCE(c.bookmark_count, 0) DESC, s.series_id
 LIMIT $1`

// ListTrendingSeries 返回按浏览量排序的已发布连载。
func (r *RankingRepository) ListTrendingSeries(ctx context.Context, sess txmanager.Session, limit int) ([]po.RankCandidate, error) {
	rows, err := conn(r.db, sess).Query(ctx, listTrendingSeriesSQL, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list trending series: %w", err)
	}
	return collectCandidates(rows, "trending series")
}

const listRisingSeriesSQL = `
SELECT s.series_id, s.title,
       COALESCE(c.view_count, 0), COALESCE(c.bookmark_count, 0), COALESCE(c.follower_count, 0),
       COALESCE(c.rating_sum, 0), COALESCE(c.rating_count, 0),
       s.created_at
  FROM reading.series s
  LEFT JOIN reading.engagement_counters c
         ON c.entity_type = 'series' AND c.entity_id = s.series_id
 WHERE s.status <> 'draft'
   AND s.created_at >= $1
   AND COALESCE(c.view_count, 0) > $2
 ORDER BY COALESCE(c.view_count, 0) DESC, s.created_at DESC, s.series_id
 LIMIT $3`

// ListRisingSeries 返回 createdAfter 之后创建且浏览量高于 viewFloor 的连载。
func (r *RankingRepository) ListRisingSeries(ctx context.Context, sess txmanager.Session, createdAfter time.Time, viewFloor int64, limit int) ([]po.RankCandidate, error) {
	rows, err := conn(r.db, sess).Query(ctx, listRisingSeriesSQL, mappers.ToPgTimestamptz(createdAfter), viewFloor, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list rising series: %w", err)
	}
	return collectCandidates(rows, "rising series")
}

const listTrendingCreatorsSQL = `
SELECT u.user_id, u.display_name,
       COALESCE(c.view_count, 0), COALESCE(c.bookmark_count, 0), COALESCE(c.follower_count, 0),
       COALESCE(c.rating_sum, 0), COALESCE(c.rating_count, 0),
       u.created_at
  FROM reading.users u
  LEFT JOIN reading.engagement_counters c
         ON c.entity_type = 'creator' AND c.entity_id = u.user_id
 WHERE EXISTS (SELECT 1 FROM reading.series s WHERE s.creator_id = u.user_id)
 ORDER BY COALESCE(c.view_count, 0) DESC, COALESCE(c.follower_count, 0) DESC, u.user_id
 LIMIT $1`

// ListTrendingCreators 返回至少拥有一部连载的作者，按浏览量排序。
func (r *RankingRepository) ListTrendingCreators(ctx context.Context, sess txmanager.Session, limit int) ([]po.RankCandidate, error) {
	rows, err := conn(r.db, sess).Query(ctx, listTrendingCreatorsSQL, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list trending creators: %w", err)
	}
	return collectCandidates(rows, "trending creators")
}

func collectCandidates(rows pgx.Rows, label string) ([]po.RankCandidate, error) {
	defer rows.Close()

	var out []po.RankCandidate
	for rows.Next() {
		var rec mappers.RankCandidateRow
		if err := rows.Scan(
			&rec.EntityID,
			&rec.Title,
			&rec.ViewCount,
			&rec.BookmarkCount,
			&rec.FollowerCount,
			&rec.RatingSum,
			&rec.RatingCount,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", label, err)
		}
		out = append(out, mappers.RankCandidateFromRow(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", label, err)
	}
	return out, nil
}
