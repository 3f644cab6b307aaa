package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MarksRepository 管理所有 "用户 × 实体" 的幂等标记表（Idempotency Guard）。
//
// 每张标记表以 (user, entity) 为主键，写入是否真正发生由数据库判定，
// 调用方据此决定是否推进计数器。
type MarksRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewMarksRepository 构造标记仓储。
func NewMarksRepository(db *pgxpool.Pool, logger log.Logger) *MarksRepository {
	return &MarksRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// insertMark 执行 ON CONFLICT DO NOTHING 写入，返回是否真正插入。
func (r *MarksRepository) insertMark(ctx context.Context, sess txmanager.Session, sql string, args ...any) (bool, error) {
	tag, err := conn(r.db, sess).Exec(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const insertViewMarkSQL = `
INSERT INTO reading.view_marks (user_id, chapter_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, chapter_id) DO NOTHING`

// MarkViewed 记录已认证用户对章节的首次浏览，返回是否为首次。
func (r *MarksRepository) MarkViewed(ctx context.Context, sess txmanager.Session, userID, chapterID uuid.UUID, viewedAt time.Time) (bool, error) {
	inserted, err := r.insertMark(ctx, sess, insertViewMarkSQL, userID, chapterID, mappers.ToPgTimestamptz(orNow(viewedAt)))
	if err != nil {
		return false, fmt.Errorf("insert view mark: %w", err)
	}
	return inserted, nil
}

const (
	deleteLikeMarkSQL = `DELETE FROM reading.like_marks WHERE user_id = $1 AND chapter_id = $2`
	insertLikeMarkSQL = `
INSERT INTO reading.like_marks (user_id, chapter_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, chapter_id) DO NOTHING`
)

// ToggleLike 翻转点赞状态。
// 返回 liked 表示翻转后的状态，changed 为 false 表示并发请求已先一步完成同方向翻转。
func (r *MarksRepository) ToggleLike(ctx context.Context, sess txmanager.Session, userID, chapterID uuid.UUID) (liked bool, changed bool, err error) {
	db := conn(r.db, sess)
	tag, err := db.Exec(ctx, deleteLikeMarkSQL, userID, chapterID)
	if err != nil {
		return false, false, fmt.Errorf("delete like mark: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return false, true, nil
	}
	inserted, err := r.insertMark(ctx, sess, insertLikeMarkSQL, userID, chapterID)
	if err != nil {
		return false, false, fmt.Errorf("insert like mark: %w", err)
	}
	return true, inserted, nil
}

const upsertCompletionMarkSQL = `
INSERT INTO reading.completion_marks (
    user_id, chapter_id, series_id, progress_percent, first_completed_at, last_completed_at
) VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (user_id, chapter_id) DO UPDATE SET
    progress_percent  = EXCLUDED.progress_percent,
    last_completed_at = EXCLUDED.last_completed_at
RETURNING user_id, chapter_id, series_id, progress_percent, first_completed_at, last_completed_at,
          (xmax = 0) AS inserted`

// UpsertCompletionMark 写入完成标记。
// 主键冲突即串行化点：并发的首次完成中只有一个会得到 Inserted=true。
func (r *MarksRepository) UpsertCompletionMark(ctx context.Context, sess txmanager.Session, mark po.CompletionMark) (*po.CompletionMark, error) {
	var rec mappers.CompletionMarkRow
	completedAt := orNow(mark.LastCompletedAt)
	err := conn(r.db, sess).QueryRow(ctx, upsertCompletionMarkSQL,
		mark.UserID,
		mark.ChapterID,
		mark.SeriesID,
		mark.ProgressPercent,
		mappers.ToPgTimestamptz(completedAt),
	).Scan(
		&rec.UserID,
		&rec.ChapterID,
		&rec.SeriesID,
		&rec.ProgressPercent,
		&rec.FirstCompletedAt,
		&rec.LastCompletedAt,
		&rec.Inserted,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert completion mark: %w", err)
	}
	return mappers.CompletionMarkFromRow(rec), nil
}

const (
	insertFollowMarkSQL = `
INSERT INTO reading.follow_marks (user_id, target_id, target_type, created_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id, target_id, target_type) DO NOTHING`
	deleteFollowMarkSQL = `
DELETE FROM reading.follow_marks
 WHERE user_id = $1 AND target_id = $2 AND target_type = $3`
	countFollowingSQL = `SELECT count(*) FROM reading.follow_marks WHERE user_id = $1`
)

// InsertFollow 建立关注关系，返回是否为新关注。
func (r *MarksRepository) InsertFollow(ctx context.Context, sess txmanager.Session, userID, targetID uuid.UUID, targetType po.FollowTargetType) (bool, error) {
	inserted, err := r.insertMark(ctx, sess, insertFollowMarkSQL, userID, targetID, string(targetType))
	if err != nil {
		return false, fmt.Errorf("insert follow mark: %w", err)
	}
	return inserted, nil
}

// DeleteFollow 取消关注，返回是否确实删除了一条关系。
func (r *MarksRepository) DeleteFollow(ctx context.Context, sess txmanager.Session, userID, targetID uuid.UUID, targetType po.FollowTargetType) (bool, error) {
	tag, err := conn(r.db, sess).Exec(ctx, deleteFollowMarkSQL, userID, targetID, string(targetType))
	if err != nil {
		return false, fmt.Errorf("delete follow mark: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountFollowing 统计用户关注的对象数量（作者与连载合计）。
func (r *MarksRepository) CountFollowing(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (int64, error) {
	var count int64
	if err := conn(r.db, sess).QueryRow(ctx, countFollowingSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count following: %w", err)
	}
	return count, nil
}

const (
	insertBookmarkMarkSQL = `
INSERT INTO reading.bookmark_marks (user_id, series_id, created_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id, series_id) DO NOTHING`
	deleteBookmarkMarkSQL = `DELETE FROM reading.bookmark_marks WHERE user_id = $1 AND series_id = $2`
)

// InsertBookmark 收藏连载，返回是否为新收藏。
func (r *MarksRepository) InsertBookmark(ctx context.Context, sess txmanager.Session, userID, seriesID uuid.UUID) (bool, error) {
	inserted, err := r.insertMark(ctx, sess, insertBookmarkMarkSQL, userID, seriesID)
	if err != nil {
		return false, fmt.Errorf("insert bookmark mark: %w", err)
	}
	return inserted, nil
}

// DeleteBookmark 取消收藏，返回是否确实删除。
func (r *MarksRepository) DeleteBookmark(ctx context.Context, sess txmanager.Session, userID, seriesID uuid.UUID) (bool, error) {
	tag, err := conn(r.db, sess).Exec(ctx, deleteBookmarkMarkSQL, userID, seriesID)
	if err != nil {
		return false, fmt.Errorf("delete bookmark mark: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const (
	updateRatingMarkSQL = `
UPDATE reading.rating_marks AS r
   SET score = $3, updated_at = now()
  FROM (SELECT user_id, series_id, score
          FROM reading.rating_marks
         WHERE user_id = $1 AND series_id = $2
           FOR UPDATE) AS old
 WHERE r.user_id = old.user_id AND r.series_id = old.series_id
RETURNING old.score, r.updated_at`
	insertRatingMarkSQL = `
INSERT INTO reading.rating_marks (user_id, series_id, score, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (user_id, series_id) DO NOTHING
RETURNING updated_at`
)

// UpsertRating 写入或修改评分，返回旧分数以便计算 rating_sum 增量。
func (r *MarksRepository) UpsertRating(ctx context.Context, sess txmanager.Session, userID, seriesID uuid.UUID, score int16) (*po.RatingMark, error) {
	db := conn(r.db, sess)
	out := &po.RatingMark{UserID: userID, SeriesID: seriesID, Score: score}

	update := func() (bool, error) {
		var updatedAt pgtype.Timestamptz
		err := db.QueryRow(ctx, updateRatingMarkSQL, userID, seriesID, score).Scan(&out.PreviousScore, &updatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		out.UpdatedAt = updatedAt.Time.UTC()
		return true, nil
	}

	updated, err := update()
	if err != nil {
		return nil, fmt.Errorf("update rating mark: %w", err)
	}
	if updated {
		return out, nil
	}

	var updatedAt pgtype.Timestamptz
	err = db.QueryRow(ctx, insertRatingMarkSQL, userID, seriesID, score).Scan(&updatedAt)
	switch {
	case err == nil:
		out.Inserted = true
		out.UpdatedAt = updatedAt.Time.UTC()
		return out, nil
	case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
		// 并发首评已落库，退回更新路径
		updated, err = update()
		if err != nil {
			return nil, fmt.Errorf("update rating mark after race: %w", err)
		}
		if !updated {
			return nil, fmt.Errorf("update rating mark after race: row vanished")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("insert rating mark: %w", err)
	}
}
