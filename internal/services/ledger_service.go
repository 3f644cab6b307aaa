package services

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/models/vo"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CompletePercent 是视为章节完成的进度阈值。
const CompletePercent = 100

// ContentReader 定义内容引用数据的只读访问。
type ContentReader interface {
	GetChapterRef(ctx context.Context, sess txmanager.Session, chapterID uuid.UUID) (*po.ChapterRef, error)
	GetSeries(ctx context.Context, sess txmanager.Session, seriesID uuid.UUID) (*po.Series, error)
	UserExists(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (bool, error)
	ListCreatorSeriesStats(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) ([]repositories.CreatorSeriesStats, error)
}

// ActivityLedger 定义阅读记录的追加与查询。
type ActivityLedger interface {
	Append(ctx context.Context, sess txmanager.Session, record po.ActivityRecord) (*po.ActivityRecord, error)
	UpsertProgress(ctx context.Context, sess txmanager.Session, record po.ActivityRecord) error
	ListRecent(ctx context.Context, sess txmanager.Session, userID uuid.UUID, limit int) ([]po.ActivityRecord, error)
}

// CompletionGuard 判定章节完成是否为首次。
type CompletionGuard interface {
	UpsertCompletionMark(ctx context.Context, sess txmanager.Session, mark po.CompletionMark) (*po.CompletionMark, error)
}

// ProfileStore 定义用户阅读画像的读写。
type ProfileStore interface {
	Get(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserActivityProfile, error)
	GetForUpdate(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserActivityProfile, error)
	IncrementCompleted(ctx context.Context, sess txmanager.Session, userID uuid.UUID, delta int64) (int64, error)
	SaveStreak(ctx context.Context, sess txmanager.Session, userID uuid.UUID, update repositories.StreakUpdate) (*po.UserActivityProfile, error)
	RepairStreak(ctx context.Context, sess txmanager.Session, userID uuid.UUID, streak int32) (bool, error)
}

// FollowCounter 统计用户的关注数。
type FollowCounter interface {
	CountFollowing(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (int64, error)
}

// CounterStore 是 engagement_counters 的唯一写入口。
type CounterStore interface {
	Increment(ctx context.Context, sess txmanager.Session, entityType po.EntityType, entityID uuid.UUID, delta repositories.CounterDelta) (*po.EngagementCounters, error)
	Get(ctx context.Context, sess txmanager.Session, entityType po.EntityType, entityID uuid.UUID) (*po.EngagementCounters, error)
}

// LedgerConfig 控制连读计算的时区与重读策略。
type LedgerConfig struct {
	// Location 决定"自然日"的边界，默认 UTC。
	Location *time.Location
	// RereadExtendsStreak 为 true 时，重复完成同一章节也会把当天计入活跃日期。
	RereadExtendsStreak bool
	// MaxActivityDates 是活跃日期集合的保留上限。
	MaxActivityDates int
	// Now 为测试注入时钟。
	Now func() time.Time
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.MaxActivityDates <= 0 {
		c.MaxActivityDates = DefaultMaxActivityDates
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// LedgerService 负责阅读进度、章节完成与连读画像。
type LedgerService struct {
	content   ContentReader
	activity  ActivityLedger
	guard     CompletionGuard
	profiles  ProfileStore
	follows   FollowCounter
	counters  CounterStore
	txManager txmanager.Manager
	metrics   *LedgerMetrics
	cfg       LedgerConfig
	log       *log.Helper
}

// NewLedgerService 构造阅读账本服务。
func NewLedgerService(
	content ContentReader,
	activity ActivityLedger,
	guard CompletionGuard,
	profiles ProfileStore,
	follows FollowCounter,
	counters CounterStore,
	tx txmanager.Manager,
	metrics *LedgerMetrics,
	cfg LedgerConfig,
	logger log.Logger,
) *LedgerService {
	return &LedgerService{
		content:   content,
		activity:  activity,
		guard:     guard,
		profiles:  profiles,
		follows:   follows,
		counters:  counters,
		txManager: tx,
		metrics:   metrics,
		cfg:       cfg.withDefaults(),
		log:       log.NewHelper(logger),
	}
}

// RecordProgressInput 是一次进度上报。
type RecordProgressInput struct {
	UserID    uuid.UUID
	SeriesID  uuid.UUID
	ChapterID uuid.UUID
	Percent   int
}

// RecordProgress 记录阅读进度；进度达到 100 时判定章节完成。
//
// 追加记录、更新进度、完成标记与画像更新在同一事务内完成。
// 同一章节只有首次完成会增加 total_chapters_completed，并发重复上报中恰好一个生效。
func (s *LedgerService) RecordProgress(ctx context.Context, in RecordProgressInput) (*vo.ProgressRecorded, error) {
	if in.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if in.ChapterID == uuid.Nil {
		return nil, invalidArgument("chapter_id is required")
	}
	if in.Percent < 0 {
		return nil, invalidArgument("percent must be between 0 and 100")
	}
	percent := in.Percent
	if percent > CompletePercent {
		percent = CompletePercent
	}

	now := s.cfg.Now().UTC()
	result := &vo.ProgressRecorded{
		UserID:          in.UserID,
		SeriesID:        in.SeriesID,
		ChapterID:       in.ChapterID,
		ProgressPercent: int16(percent),
		RecordedAt:      now,
	}

	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		ref, err := s.content.GetChapterRef(txCtx, sess, in.ChapterID)
		if err != nil {
			return err
		}
		if in.SeriesID != uuid.Nil && ref.SeriesID != in.SeriesID {
			return ErrChapterNotFound
		}
		result.SeriesID = ref.SeriesID

		record := po.ActivityRecord{
			UserID:          in.UserID,
			SeriesID:        ref.SeriesID,
			ChapterID:       ref.ChapterID,
			ProgressPercent: int16(percent),
			TouchedAt:       now,
		}
		if _, err := s.activity.Append(txCtx, sess, record); err != nil {
			return err
		}
		if err := s.activity.UpsertProgress(txCtx, sess, record); err != nil {
			return err
		}

		if percent < CompletePercent {
			profile, err := s.profiles.Get(txCtx, sess, in.UserID)
			if err != nil {
				return err
			}
			result.ReadingStreak = int32(s.streakOf(profile.ActivityDates, now))
			result.TotalChaptersCompleted = profile.TotalChaptersCompleted
			return nil
		}

		mark, err := s.guard.UpsertCompletionMark(txCtx, sess, po.CompletionMark{
			UserID:          in.UserID,
			ChapterID:       ref.ChapterID,
			SeriesID:        ref.SeriesID,
			ProgressPercent: int16(percent),
			LastCompletedAt: now,
		})
		if err != nil {
			return err
		}

		// 画像行锁串行化同一用户的日期集合读改写
		profile, err := s.profiles.GetForUpdate(txCtx, sess, in.UserID)
		if err != nil {
			return err
		}

		result.CompletedNow = mark.Inserted
		result.Duplicate = !mark.Inserted
		result.TotalChaptersCompleted = profile.TotalChaptersCompleted

		if mark.Inserted {
			total, err := s.profiles.IncrementCompleted(txCtx, sess, in.UserID, 1)
			if err != nil {
				return err
			}
			result.TotalChaptersCompleted = total
		} else if !s.cfg.RereadExtendsStreak {
			result.ReadingStreak = int32(s.streakOf(profile.ActivityDates, now))
			return nil
		}

		dates := AddActivityDate(profile.ActivityDates, CalendarDay(now, s.cfg.Location), s.cfg.MaxActivityDates)
		streak := int32(s.streakOf(dates, now))
		chapterID := ref.ChapterID
		if _, err := s.profiles.SaveStreak(txCtx, sess, in.UserID, repositories.StreakUpdate{
			ActivityDates:     dates,
			ReadingStreak:     streak,
			LastReadAt:        &now,
			LastReadChapterID: &chapterID,
		}); err != nil {
			return err
		}
		result.ReadingStreak = streak
		return nil
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("record progress failed: user=%s chapter=%s err=%v", in.UserID, in.ChapterID, err)
		return nil, mapStoreError(err, "record progress")
	}

	if percent >= CompletePercent {
		s.metrics.recordCompletion(ctx, result.CompletedNow)
	}
	s.log.WithContext(ctx).Debugf("RecordProgress: user=%s chapter=%s percent=%d completed_now=%t streak=%d",
		in.UserID, in.ChapterID, percent, result.CompletedNow, result.ReadingStreak)
	return result, nil
}

// GetProfileStats 返回用户阅读画像。
// 连读天数以日期集合重新计算的结果为准；与缓存值不一致时尽力修正缓存。
func (s *LedgerService) GetProfileStats(ctx context.Context, userID uuid.UUID) (*vo.ProfileStats, error) {
	if userID == uuid.Nil {
		return nil, invalidArgument("user_id is required")
	}

	var (
		profile   *po.UserActivityProfile
		following int64
		followers int64
	)
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		exists, err := s.content.UserExists(txCtx, sess, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
		if profile, err = s.profiles.Get(txCtx, sess, userID); err != nil {
			return err
		}
		if following, err = s.follows.CountFollowing(txCtx, sess, userID); err != nil {
			return err
		}
		counters, err := s.counters.Get(txCtx, sess, po.EntityCreator, userID)
		if err != nil {
			return err
		}
		followers = counters.FollowerCount
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "get profile stats")
	}

	streak := int32(s.streakOf(profile.ActivityDates, s.cfg.Now()))
	if streak != profile.ReadingStreak {
		s.repairStreak(ctx, userID, profile.ReadingStreak, streak)
	}
	return vo.NewProfileStats(profile, streak, following, followers), nil
}

func (s *LedgerService) repairStreak(ctx context.Context, userID uuid.UUID, stored, computed int32) {
	repaired, err := s.profiles.RepairStreak(ctx, nil, userID, computed)
	if err != nil {
		s.log.WithContext(ctx).Warnf("repair reading streak failed: user=%s stored=%d computed=%d err=%v", userID, stored, computed, err)
		return
	}
	if repaired {
		s.log.WithContext(ctx).Infof("reading streak repaired: user=%s stored=%d computed=%d", userID, stored, computed)
	}
}

func (s *LedgerService) streakOf(dates []string, now time.Time) int {
	return ComputeStreak(ParseActivityDates(dates, s.cfg.Location), now.In(s.cfg.Location))
}
