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

// ViewGuard 判定已认证用户的浏览是否为首次。
// 实现必须在与计数器增量相同的事务内写入标记，并把唯一约束冲突视为"已记录"。
type ViewGuard interface {
	MarkViewed(ctx context.Context, sess txmanager.Session, userID, chapterID uuid.UUID, viewedAt time.Time) (bool, error)
}

// ViewCache 是浏览去重的可选前置缓存（Redis）。
// 命中只用于短路；标记在事务提交后才写入，未命中时由 ViewGuard 做权威判定。
type ViewCache interface {
	SeenRecently(ctx context.Context, userID, chapterID uuid.UUID) (bool, error)
	Remember(ctx context.Context, userID, chapterID uuid.UUID)
}

// EngagementMarks 定义点赞、关注、收藏与评分标记的写入。
type EngagementMarks interface {
	ToggleLike(ctx context.Context, sess txmanager.Session, userID, chapterID uuid.UUID) (liked bool, changed bool, err error)
	InsertFollow(ctx context.Context, sess txmanager.Session, userID, targetID uuid.UUID, targetType po.FollowTargetType) (bool, error)
	DeleteFollow(ctx context.Context, sess txmanager.Session, userID, targetID uuid.UUID, targetType po.FollowTargetType) (bool, error)
	InsertBookmark(ctx context.Context, sess txmanager.Session, userID, seriesID uuid.UUID) (bool, error)
	DeleteBookmark(ctx context.Context, sess txmanager.Session, userID, seriesID uuid.UUID) (bool, error)
	UpsertRating(ctx context.Context, sess txmanager.Session, userID, seriesID uuid.UUID, score int16) (*po.RatingMark, error)
}

// 评分取值范围
const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// EngagementService 处理浏览、点赞、关注、收藏与评分。
// 计数器只在标记真正写入或删除时变化。
type EngagementService struct {
	content   ContentReader
	guard     ViewGuard
	cache     ViewCache
	marks     EngagementMarks
	counters  CounterStore
	txManager txmanager.Manager
	metrics   *LedgerMetrics
	now       func() time.Time
	log       *log.Helper
}

// NewEngagementService 构造互动服务。cache 可为 nil。
func NewEngagementService(
	content ContentReader,
	guard ViewGuard,
	cache ViewCache,
	marks EngagementMarks,
	counters CounterStore,
	tx txmanager.Manager,
	metrics *LedgerMetrics,
	logger log.Logger,
) *EngagementService {
	return &EngagementService{
		content:   content,
		guard:     guard,
		cache:     cache,
		marks:     marks,
		counters:  counters,
		txManager: tx,
		metrics:   metrics,
		now:       time.Now,
		log:       log.NewHelper(logger),
	}
}

// RecordView 上报章节浏览。
//
// 匿名浏览（userID 为 uuid.Nil）每次都计数；已认证用户对同一章节只计一次。
// 计数时章节、所属连载与作者的 view_count 同时加一。
func (s *EngagementService) RecordView(ctx context.Context, userID, chapterID uuid.UUID) (*vo.ViewRecorded, error) {
	if chapterID == uuid.Nil {
		return nil, invalidArgument("chapter_id is required")
	}
	anonymous := userID == uuid.Nil
	result := &vo.ViewRecorded{ChapterID: chapterID}

	if !anonymous && s.cache != nil {
		if seen, err := s.cache.SeenRecently(ctx, userID, chapterID); err == nil && seen {
			counters, err := s.counters.Get(ctx, nil, po.EntityChapter, chapterID)
			if err != nil {
				return nil, mapStoreError(err, "record view")
			}
			result.ViewCount = counters.ViewCount
			s.metrics.recordView(ctx, false, anonymous)
			return result, nil
		}
	}

	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		ref, err := s.content.GetChapterRef(txCtx, sess, chapterID)
		if err != nil {
			return err
		}

		counted := true
		if !anonymous {
			if counted, err = s.guard.MarkViewed(txCtx, sess, userID, chapterID, s.now()); err != nil {
				return err
			}
		}
		if !counted {
			counters, err := s.counters.Get(txCtx, sess, po.EntityChapter, chapterID)
			if err != nil {
				return err
			}
			result.ViewCount = counters.ViewCount
			return nil
		}

		delta := repositories.CounterDelta{ViewDelta: 1}
		chapter, err := s.increment(txCtx, sess, po.EntityChapter, ref.ChapterID, delta)
		if err != nil {
			return err
		}
		if _, err := s.increment(txCtx, sess, po.EntitySeries, ref.SeriesID, delta); err != nil {
			return err
		}
		if _, err := s.increment(txCtx, sess, po.EntityCreator, ref.CreatorID, delta); err != nil {
			return err
		}
		result.Counted = true
		result.ViewCount = chapter.ViewCount
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "record view")
	}
	// 提交后才写缓存：崩溃在提交前不会留下标记，提交后丢失标记只会多走一次主键去重
	if !anonymous && s.cache != nil {
		s.cache.Remember(ctx, userID, chapterID)
	}

	s.metrics.recordView(ctx, result.Counted, anonymous)
	return result, nil
}

// ToggleLike 翻转用户对章节的点赞。
func (s *EngagementService) ToggleLike(ctx context.Context, userID, chapterID uuid.UUID) (*vo.LikeToggled, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if chapterID == uuid.Nil {
		return nil, invalidArgument("chapter_id is required")
	}

	result := &vo.LikeToggled{ChapterID: chapterID}
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if _, err := s.content.GetChapterRef(txCtx, sess, chapterID); err != nil {
			return err
		}
		liked, changed, err := s.marks.ToggleLike(txCtx, sess, userID, chapterID)
		if err != nil {
			return err
		}
		result.Liked = liked

		var counters *po.EngagementCounters
		if changed {
			delta := repositories.CounterDelta{LikeDelta: 1}
			if !liked {
				delta.LikeDelta = -1
			}
			counters, err = s.increment(txCtx, sess, po.EntityChapter, chapterID, delta)
		} else {
			counters, err = s.counters.Get(txCtx, sess, po.EntityChapter, chapterID)
		}
		if err != nil {
			return err
		}
		result.LikeCount = counters.LikeCount
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "toggle like")
	}
	return result, nil
}

// ParseFollowTarget 校验关注对象类别。
func ParseFollowTarget(raw string) (po.FollowTargetType, error) {
	switch t := po.FollowTargetType(raw); t {
	case po.FollowTargetCreator, po.FollowTargetSeries:
		return t, nil
	default:
		return "", invalidArgument("target_type must be creator or series")
	}
}

func followEntity(t po.FollowTargetType) po.EntityType {
	if t == po.FollowTargetSeries {
		return po.EntitySeries
	}
	return po.EntityCreator
}

// Follow 关注作者或连载，重复关注不改变粉丝数。
func (s *EngagementService) Follow(ctx context.Context, userID, targetID uuid.UUID, targetType po.FollowTargetType) (*vo.FollowChanged, error) {
	return s.changeFollow(ctx, userID, targetID, targetType, true)
}

// Unfollow 取消关注，未关注时为空操作。
func (s *EngagementService) Unfollow(ctx context.Context, userID, targetID uuid.UUID, targetType po.FollowTargetType) (*vo.FollowChanged, error) {
	return s.changeFollow(ctx, userID, targetID, targetType, false)
}

func (s *EngagementService) changeFollow(ctx context.Context, userID, targetID uuid.UUID, targetType po.FollowTargetType, follow bool) (*vo.FollowChanged, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if targetID == uuid.Nil {
		return nil, invalidArgument("target_id is required")
	}
	if _, err := ParseFollowTarget(string(targetType)); err != nil {
		return nil, err
	}
	if follow && targetType == po.FollowTargetCreator && targetID == userID {
		return nil, invalidArgument("cannot follow yourself")
	}

	result := &vo.FollowChanged{TargetID: targetID, TargetType: string(targetType), Following: follow}
	entity := followEntity(targetType)
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if follow {
			if err := s.ensureFollowTarget(txCtx, sess, targetID, targetType); err != nil {
				return err
			}
		}

		var (
			changed bool
			err     error
		)
		if follow {
			changed, err = s.marks.InsertFollow(txCtx, sess, userID, targetID, targetType)
		} else {
			changed, err = s.marks.DeleteFollow(txCtx, sess, userID, targetID, targetType)
		}
		if err != nil {
			return err
		}
		result.Changed = changed

		var counters *po.EngagementCounters
		if changed {
			delta := repositories.CounterDelta{FollowerDelta: 1}
			if !follow {
				delta.FollowerDelta = -1
			}
			counters, err = s.increment(txCtx, sess, entity, targetID, delta)
		} else {
			counters, err = s.counters.Get(txCtx, sess, entity, targetID)
		}
		if err != nil {
			return err
		}
		result.FollowerCount = counters.FollowerCount
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "change follow")
	}
	return result, nil
}

func (s *EngagementService) ensureFollowTarget(ctx context.Context, sess txmanager.Session, targetID uuid.UUID, targetType po.FollowTargetType) error {
	if targetType == po.FollowTargetSeries {
		_, err := s.content.GetSeries(ctx, sess, targetID)
		return err
	}
	exists, err := s.content.UserExists(ctx, sess, targetID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

// Bookmark 收藏连载。
func (s *EngagementService) Bookmark(ctx context.Context, userID, seriesID uuid.UUID) (*vo.BookmarkChanged, error) {
	return s.changeBookmark(ctx, userID, seriesID, true)
}

// Unbookmark 取消收藏连载。
func (s *EngagementService) Unbookmark(ctx context.Context, userID, seriesID uuid.UUID) (*vo.BookmarkChanged, error) {
	return s.changeBookmark(ctx, userID, seriesID, false)
}

func (s *EngagementService) changeBookmark(ctx context.Context, userID, seriesID uuid.UUID, bookmark bool) (*vo.BookmarkChanged, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if seriesID == uuid.Nil {
		return nil, invalidArgument("series_id is required")
	}

	result := &vo.BookmarkChanged{SeriesID: seriesID, Bookmarked: bookmark}
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var (
			changed bool
			err     error
		)
		if bookmark {
			if _, err = s.content.GetSeries(txCtx, sess, seriesID); err != nil {
				return err
			}
			changed, err = s.marks.InsertBookmark(txCtx, sess, userID, seriesID)
		} else {
			changed, err = s.marks.DeleteBookmark(txCtx, sess, userID, seriesID)
		}
		if err != nil {
			return err
		}
		result.Changed = changed

		var counters *po.EngagementCounters
		if changed {
			delta := repositories.CounterDelta{BookmarkDelta: 1}
			if !bookmark {
				delta.BookmarkDelta = -1
			}
			counters, err = s.increment(txCtx, sess, po.EntitySeries, seriesID, delta)
		} else {
			counters, err = s.counters.Get(txCtx, sess, po.EntitySeries, seriesID)
		}
		if err != nil {
			return err
		}
		result.BookmarkCount = counters.BookmarkCount
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "change bookmark")
	}
	return result, nil
}

// RateSeries 写入用户对连载的评分。
// 首次评分累加 rating_sum 与 rating_count；改分只按差值调整 rating_sum。
func (s *EngagementService) RateSeries(ctx context.Context, userID, seriesID uuid.UUID, score int) (*vo.SeriesRated, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if seriesID == uuid.Nil {
		return nil, invalidArgument("series_id is required")
	}
	if score < MinRatingScore || score > MaxRatingScore {
		return nil, invalidArgument("score must be between 1 and 5")
	}

	result := &vo.SeriesRated{SeriesID: seriesID, Score: int16(score)}
	err := s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if _, err := s.content.GetSeries(txCtx, sess, seriesID); err != nil {
			return err
		}
		mark, err := s.marks.UpsertRating(txCtx, sess, userID, seriesID, int16(score))
		if err != nil {
			return err
		}

		delta := repositories.CounterDelta{RatingSumDelta: int64(score)}
		if mark.Inserted {
			delta.RatingCountDelta = 1
		} else {
			delta.RatingSumDelta = int64(score) - int64(mark.PreviousScore)
			result.PreviousScore = mark.PreviousScore
		}

		var counters *po.EngagementCounters
		if delta.IsZero() {
			counters, err = s.counters.Get(txCtx, sess, po.EntitySeries, seriesID)
		} else {
			counters, err = s.increment(txCtx, sess, po.EntitySeries, seriesID, delta)
		}
		if err != nil {
			return err
		}
		result.RatingCount = counters.RatingCount
		result.AverageRating = counters.AverageRating()
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "rate series")
	}
	return result, nil
}

func (s *EngagementService) increment(ctx context.Context, sess txmanager.Session, entityType po.EntityType, entityID uuid.UUID, delta repositories.CounterDelta) (*po.EngagementCounters, error) {
	counters, err := s.counters.Increment(ctx, sess, entityType, entityID, delta)
	if err != nil {
		return nil, err
	}
	if counters.Clamped {
		s.metrics.recordClamped(ctx, string(entityType))
	}
	return counters, nil
}
