package repositories

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityRepository 负责 Activity Ledger：只追加的阅读记录与每章最新进度。
type ActivityRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewActivityRepository 构造阅读记录仓储。
func NewActivityRepository(db *pgxpool.Pool, logger log.Logger) *ActivityRepository {
	return &ActivityRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const appendActivitySQL = `
INSERT INTO reading.activity_records (record_id, user_id, series_id, chapter_id, progress_percent, touched_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// Append 追加一条阅读记录。RecordID 为空时自动生成。
func (r *ActivityRepository) Append(ctx context.Context, sess txmanager.Session, record po.ActivityRecord) (*po.ActivityRecord, error) {
	if record.RecordID == uuid.Nil {
		record.RecordID = uuid.New()
	}
	record.TouchedAt = orNow(record.TouchedAt)
	_, err := conn(r.db, sess).Exec(ctx, appendActivitySQL,
		record.RecordID,
		record.UserID,
		record.SeriesID,
		record.ChapterID,
		record.ProgressPercent,
		mappers.ToPgTimestamptz(record.TouchedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("append activity record: %w", err)
	}
	return &record, nil
}

const upsertProgressSQL = `
INSERT INTO reading.reading_progress (user_id, chapter_id, series_id, progress_percent, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, chapter_id) DO UPDATE SET
    progress_percent = EXCLUDED.progress_percent,
    series_id        = EXCLUDED.series_id,
    updated_at       = EXCLUDED.updated_at`

// UpsertProgress 覆盖写入用户在某章节的最新进度。
func (r *ActivityRepository) UpsertProgress(ctx context.Context, sess txmanager.Session, record po.ActivityRecord) error {
	_, err := conn(r.db, sess).Exec(ctx, upsertProgressSQL,
		record.UserID,
		record.ChapterID,
		record.SeriesID,
		record.ProgressPercent,
		mappers.ToPgTimestamptz(orNow(record.TouchedAt)),
	)
	if err != nil {
		return fmt.Errorf("upsert reading progress: %w", err)
	}
	return nil
}

const listRecentActivitySQL = `
SELECT record_id, user_id, series_id, chapter_id, progress_percent, touched_at
  FROM reading.activity_records
 WHERE user_id = $1
 ORDER BY touched_at DESC, record_id DESC
 LIMIT $2`

// ListRecent 按时间倒序返回用户最近的 limit 条阅读记录。
func (r *ActivityRepository) ListRecent(ctx context.Context, sess txmanager.Session, userID uuid.UUID, limit int) ([]po.ActivityRecord, error) {
	rows, err := conn(r.db, sess).Query(ctx, listRecentActivitySQL, userID, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	defer rows.Close()

	records := make([]po.ActivityRecord, 0, limit)
	for rows.Next() {
		var rec mappers.ActivityRecordRow
		if err := rows.Scan(&rec.RecordID, &rec.UserID, &rec.SeriesID, &rec.ChapterID, &rec.ProgressPercent, &rec.TouchedAt); err != nil {
			return nil, fmt.Errorf("scan activity record: %w", err)
		}
		records = append(records, mappers.ActivityRecordFromRow(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity records: %w", err)
	}
	return records, nil
}
