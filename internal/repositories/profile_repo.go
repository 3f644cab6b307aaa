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
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository 维护 reading.user_activity_profiles。
type ProfileRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewProfileRepository 构造用户阅读画像仓储。
func NewProfileRepository(db *pgxpool.Pool, logger log.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const profileColumns = `user_id, total_chapters_completed, reading_streak, activity_dates, last_read_at, last_read_chapter_id, updated_at`

// Get 返回用户画像，不存在时返回零值画像。
func (r *ProfileRepository) Get(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserActivityProfile, error) {
	row := conn(r.db, sess).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM reading.user_activity_profiles WHERE user_id = $1`, userID)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &po.UserActivityProfile{UserID: userID, ActivityDates: []string{}}, nil
		}
		return nil, fmt.Errorf("get activity profile: %w", err)
	}
	return profile, nil
}

const ensureProfileSQL = `
INSERT INTO reading.user_activity_profiles (user_id) VALUES ($1)
ON CONFLICT (user_id) DO NOTHING`

// GetForUpdate 确保画像行存在并加行锁，必须在事务中调用。
// 同一用户的并发完成在此处串行，保证 activity_dates 的读改写不丢更新。
func (r *ProfileRepository) GetForUpdate(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserActivityProfile, error) {
	db := conn(r.db, sess)
	if _, err := db.Exec(ctx, ensureProfileSQL, userID); err != nil {
		return nil, fmt.Errorf("ensure activity profile: %w", err)
	}
	row := db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM reading.user_activity_profiles WHERE user_id = $1 FOR UPDATE`, userID)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("lock activity profile: %w", err)
	}
	return profile, nil
}

const incrementCompletedSQL = `
INSERT INTO reading.user_activity_profiles AS p (user_id, total_chapters_completed, updated_at)
VALUES ($1, GREATEST($2::bigint, 0), now())
ON CONFLICT (user_id) DO UPDATE SET
    total_chapters_completed = GREATEST(p.total_chapters_completed + $2::bigint, 0),
    updated_at               = now()
RETURNING p.total_chapters_completed`

// IncrementCompleted 原子地累加已完成章节数并返回最新值。
func (r *ProfileRepository) IncrementCompleted(ctx context.Context, sess txmanager.Session, userID uuid.UUID, delta int64) (int64, error) {
	var total int64
	if err := conn(r.db, sess).QueryRow(ctx, incrementCompletedSQL, userID, delta).Scan(&total); err != nil {
		return 0, fmt.Errorf("increment chapters completed: %w", err)
	}
	return total, nil
}

// StreakUpdate 描述一次连读状态写回。
// LastReadAt/LastReadChapterID 为 nil 时保留原值。
type StreakUpdate struct {
	ActivityDates     []string
	ReadingStreak     int32
	LastReadAt        *time.Time
	LastReadChapterID *uuid.UUID
}

const saveStreakSQL = `
INSERT INTO reading.user_activity_profiles AS p (
    user_id, reading_streak, activity_dates, last_read_at, last_read_chapter_id, updated_at
) VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (user_id) DO UPDATE SET
    reading_streak       = EXCLUDED.reading_streak,
    activity_dates       = EXCLUDED.activity_dates,
    last_read_at         = COALESCE(EXCLUDED.last_read_at, p.last_read_at),
    last_read_chapter_id = COALESCE(EXCLUDED.last_read_chapter_id, p.last_read_chapter_id),
    updated_at           = now()
RETURNING ` + profileColumnsQualified

const profileColumnsQualified = `p.user_id, p.total_chapters_completed, p.reading_streak, p.activity_dates, p.last_read_at, p.last_read_chapter_id, p.updated_at`

// SaveStreak 写回活跃日期与连读天数。
func (r *ProfileRepository) SaveStreak(ctx context.Context, sess txmanager.Session, userID uuid.UUID, update StreakUpdate) (*po.UserActivityProfile, error) {
	dates := update.ActivityDates
	if dates == nil {
		dates = []string{}
	}
	row := conn(r.db, sess).QueryRow(ctx, saveStreakSQL,
		userID,
		update.ReadingStreak,
		dates,
		mappers.ToPgTimestamptzPtr(update.LastReadAt),
		mappers.ToPgUUID(update.LastReadChapterID),
	)
	profile, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("save reading streak: %w", err)
	}
	return profile, nil
}

const repairStreakSQL = `
UPDATE reading.user_activity_profiles
   SET reading_streak = $2, updated_at = now()
 WHERE user_id = $1 AND reading_streak <> $2`

// RepairStreak 在读路径发现缓存的连读天数与日期集合不一致时修正缓存值。
// 返回是否实际发生了修正。
func (r *ProfileRepository) RepairStreak(ctx context.Context, sess txmanager.Session, userID uuid.UUID, streak int32) (bool, error) {
	tag, err := conn(r.db, sess).Exec(ctx, repairStreakSQL, userID, streak)
	if err != nil {
		return false, fmt.Errorf("repair reading streak: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanProfile(row pgx.Row) (*po.UserActivityProfile, error) {
	var rec mappers.ActivityProfileRow
	if err := row.Scan(
		&rec.UserID,
		&rec.TotalChaptersCompleted,
		&rec.ReadingStreak,
		&rec.ActivityDates,
		&rec.LastReadAt,
		&rec.LastReadChapterID,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return mappers.ActivityProfileFromRow(rec), nil
}
