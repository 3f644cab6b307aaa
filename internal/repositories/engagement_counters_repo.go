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

// EngagementCountersRepository 维护 reading.engagement_counters（Counter Store）。
// 计数变更在数据库侧加锁完成，应用层不做读改写。
type EngagementCountersRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewEngagementCountersRepository 构造计数器仓储。
func NewEngagementCountersRepository(db *pgxpool.Pool, logger log.Logger) *EngagementCountersRepository {
	return &EngagementCountersRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CounterDelta 表示需要应用的计数增量，可正可负。
type CounterDelta struct {
	ViewDelta        int64
	LikeDelta        int64
	BookmarkDelta    int64
	FollowerDelta    int64
	RatingSumDelta   int64
	RatingCountDelta int64
}

// IsZero 判断增量是否为空。
func (d CounterDelta) IsZero() bool {
	return d.ViewDelta == 0 &&
		d.LikeDelta == 0 &&
		d.BookmarkDelta == 0 &&
		d.FollowerDelta == 0 &&
		d.RatingSumDelta == 0 &&
		d.RatingCountDelta == 0
}

const (
	// old 子查询先锁定并读取最新提交的行版本，截断标记据此计算，避免语句快照过期。
	updateCountersSQL = `
UPDATE reading.engagement_counters AS c
   SET view_count     = GREATEST(old.view_count + $3::bigint, 0),
       like_count     = GREATEST(old.like_count + $4::bigint, 0),
       bookmark_count = GREATEST(old.bookmark_count + $5::bigint, 0),
       follower_count = GREATEST(old.follower_count + $6::bigint, 0),
       rating_sum     = GREATEST(old.rating_sum + $7::bigint, 0),
       rating_count   = GREATEST(old.rating_count + $8::bigint, 0),
       updated_at     = now()
  FROM (
        SELECT entity_type, entity_id,
               view_count, like_count, bookmark_count, follower_count, rating_sum, rating_count
          FROM reading.engagement_counters
         WHERE entity_type = $1::text AND entity_id = $2::uuid
           FOR UPDATE
       ) AS old
 WHERE c.entity_type = old.entity_type AND c.entity_id = old.entity_id
RETURNING c.entity_type, c.entity_id,
          c.view_count, c.like_count, c.bookmark_count, c.follower_count, c.rating_sum, c.rating_count,
          c.updated_at,
          (old.view_count + $3::bigint < 0
             OR old.like_count + $4::bigint < 0
             OR old.bookmark_count + $5::bigint < 0
             OR old.follower_count + $6::bigint < 0
             OR old.rating_sum + $7::bigint < 0
             OR old.rating_count + $8::bigint < 0) AS clamped`

	insertCountersSQL = `
INSERT INTO reading.engagement_counters (
    entity_type, entity_id,
    view_count, like_count, bookmark_count, follower_count, rating_sum, rating_count,
    updated_at
) VALUES (
    $1::text, $2::uuid,
    GREATEST($3::bigint, 0), GREATEST($4::bigint, 0), GREATEST($5::bigint, 0),
    GREATEST($6::bigint, 0), GREATEST($7::bigint, 0), GREATEST($8::bigint, 0),
    now()
)
ON CONFLICT (entity_type, entity_id) DO NOTHING
RETURNING entity_type, entity_id,
          view_count, like_count, bookmark_count, follower_count, rating_sum, rating_count,
          updated_at,
          ($3::bigint < 0 OR $4::bigint < 0 OR $5::bigint < 0
             OR $6::bigint < 0 OR $7::bigint < 0 OR $8::bigint < 0) AS clamped`
)

// Increment 原子地应用计数增量并返回最新值。
// 任何会导致负数的增量被截断为 0，并通过 Clamped 标记与告警日志暴露。
// 行已存在时走加锁更新；不存在时插入，插入撞上并发创建则回到更新路径。
func (r *EngagementCountersRepository) Increment(ctx context.Context, sess txmanager.Session, entityType po.EntityType, entityID uuid.UUID, delta CounterDelta) (*po.EngagementCounters, error) {
	db := conn(r.db, sess)
	args := []any{
		string(entityType),
		entityID,
		delta.ViewDelta,
		delta.LikeDelta,
		delta.BookmarkDelta,
		delta.FollowerDelta,
		delta.RatingSumDelta,
		delta.RatingCountDelta,
	}

	var (
		counters *po.EngagementCounters
		err      error
	)
	for _, query := range []string{updateCountersSQL, insertCountersSQL, updateCountersSQL} {
		counters, err = scanCounters(db.QueryRow(ctx, query, args...), true)
		if err == nil || !errors.Is(err, pgx.ErrNoRows) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("increment engagement counters: %w", err)
	}
	if counters.Clamped {
		r.log.WithContext(ctx).Warnw(
			"msg", "engagement counter clamped at zero",
			"entity_type", entityType,
			"entity_id", entityID.String(),
			"delta", fmt.Sprintf("%+v", delta),
		)
	}
	return counters, nil
}

const getCountersSQL = `
SELECT entity_type, entity_id,
       view_count, like_count, bookmark_count, follower_count, rating_sum, rating_count,
       updated_at
  FROM reading.engagement_counters
 WHERE entity_type = $1::text AND entity_id = $2::uuid`

// Get 返回实体当前计数，不存在时返回全零结构。
func (r *EngagementCountersRepository) Get(ctx context.Context, sess txmanager.Session, entityType po.EntityType, entityID uuid.UUID) (*po.EngagementCounters, error) {
	row := conn(r.db, sess).QueryRow(ctx, getCountersSQL, string(entityType), entityID)
	counters, err := scanCounters(row, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &po.EngagementCounters{EntityType: entityType, EntityID: entityID}, nil
		}
		return nil, fmt.Errorf("get engagement counters: %w", err)
	}
	return counters, nil
}

func scanCounters(row pgx.Row, withClamped bool) (*po.EngagementCounters, error) {
	var rec mappers.EngagementCountersRow
	dest := []any{
		&rec.EntityType, &rec.EntityID,
		&rec.ViewCount, &rec.LikeCount, &rec.BookmarkCount, &rec.FollowerCount, &rec.RatingSum, &rec.RatingCount,
		&rec.UpdatedAt,
	}
	if withClamped {
		dest = append(dest, &rec.Clamped)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return mappers.EngagementCountersFromRow(rec), nil
}

var _ interface {
	Increment(context.Context, txmanager.Session, po.EntityType, uuid.UUID, CounterDelta) (*po.EngagementCounters, error)
	Get(context.Context, txmanager.Session, po.EntityType, uuid.UUID) (*po.EngagementCounters, error)
} = (*EngagementCountersRepository)(nil)
