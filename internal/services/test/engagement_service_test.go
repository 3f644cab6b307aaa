package services_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories"
	"github.com/bionicotaku/lingo-services-reading/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engagementFixture struct {
	svc      *services.EngagementService
	content  *fakeContent
	marks    *fakeMarks
	counters *fakeCounters
	cache    *fakeViewCache
}

func newEngagementFixture(withCache bool) *engagementFixture {
	fx := &engagementFixture{
		content:  newFakeContent(),
		marks:    newFakeMarks(),
		counters: newFakeCounters(),
	}
	var cache services.ViewCache
	if withCache {
		fx.cache = newFakeViewCache()
		cache = fx.cache
	}
	fx.svc = services.NewEngagementService(fx.content, fx.marks, cache, fx.marks, fx.counters,
		&lockingTxManager{}, nil, log.NewStdLogger(io.Discard))
	return fx
}

func TestRecordViewAnonymousCountsEveryView(t *testing.T) {
	fx := newEngagementFixture(false)
	ref := fx.content.addChapter(uuid.New(), uuid.New())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		out, err := fx.svc.RecordView(ctx, uuid.Nil, ref.ChapterID)
		require.NoError(t, err)
		assert.True(t, out.Counted)
		assert.Equal(t, int64(i), out.ViewCount)
	}

	assert.Equal(t, int64(3), fx.counters.value(po.EntityChapter, ref.ChapterID).ViewCount)
	assert.Equal(t, int64(3), fx.counters.value(po.EntitySeries, ref.SeriesID).ViewCount)
	assert.Equal(t, int64(3), fx.counters.value(po.EntityCreator, ref.CreatorID).ViewCount)
}

func TestRecordViewAuthenticatedCountsOnce(t *testing.T) {
	fx := newEngagementFixture(false)
	ref := fx.content.addChapter(uuid.New(), uuid.New())
	user := uuid.New()
	ctx := context.Background()

	first, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.True(t, first.Counted)

	again, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.False(t, again.Counted)
	assert.Equal(t, int64(1), again.ViewCount)

	other, err := fx.svc.RecordView(ctx, uuid.New(), ref.ChapterID)
	require.NoError(t, err)
	assert.True(t, other.Counted)
	assert.Equal(t, int64(2), fx.counters.value(po.EntitySeries, ref.SeriesID).ViewCount)
}

func TestRecordViewCacheShortCircuitsRepeatViews(t *testing.T) {
	fx := newEngagementFixture(true)
	ref := fx.content.addChapter(uuid.New(), uuid.New())
	user := uuid.New()
	ctx := context.Background()

	_, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)

	// 删除持久化标记后，缓存仍拦住重复浏览
	delete(fx.marks.views, pairKey{user, ref.ChapterID})
	again, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.False(t, again.Counted)
	assert.Equal(t, int64(1), again.ViewCount)
}

func TestRecordViewCacheErrorFallsBackToStore(t *testing.T) {
	fx := newEngagementFixture(true)
	fx.cache.err = errors.New("redis down")
	ref := fx.content.addChapter(uuid.New(), uuid.New())
	user := uuid.New()
	ctx := context.Background()

	first, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.True(t, first.Counted)

	again, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.False(t, again.Counted)
}

func TestRecordViewFailedWriteLeavesNoCacheMark(t *testing.T) {
	fx := newEngagementFixture(true)
	user := uuid.New()
	ctx := context.Background()

	_, err := fx.svc.RecordView(ctx, user, uuid.New())
	require.Error(t, err)
	assert.Equal(t, services.ReasonChapterNotFound, reasonOf(err))
	assert.Zero(t, fx.cache.remembered)
	assert.Empty(t, fx.cache.seen)

	// 事务中途失败后重试，浏览仍然计数
	ref := fx.content.addChapter(uuid.New(), uuid.New())
	fx.content.err = errors.New("connection reset")
	_, err = fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.Error(t, err)
	assert.Empty(t, fx.cache.seen)

	fx.content.err = nil
	retry, err := fx.svc.RecordView(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.True(t, retry.Counted)
	assert.Equal(t, int64(1), retry.ViewCount)
	assert.Equal(t, 1, fx.cache.remembered)
}

func TestRecordViewRequiresChapter(t *testing.T) {
	fx := newEngagementFixture(false)
	_, err := fx.svc.RecordView(context.Background(), uuid.New(), uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, 400, codeOf(err))
}

func TestToggleLikeTwice(t *testing.T) {
	fx := newEngagementFixture(false)
	ref := fx.content.addChapter(uuid.New(), uuid.New())
	user := uuid.New()
	ctx := context.Background()

	liked, err := fx.svc.ToggleLike(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, int64(1), liked.LikeCount)

	unliked, err := fx.svc.ToggleLike(ctx, user, ref.ChapterID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Zero(t, unliked.LikeCount)

	_, err = fx.svc.ToggleLike(ctx, uuid.Nil, ref.ChapterID)
	require.Error(t, err)
	assert.Equal(t, 401, codeOf(err))
}

func TestFollowIsIdempotent(t *testing.T) {
	fx := newEngagementFixture(false)
	creator := uuid.New()
	fx.content.addChapter(creator, uuid.New())
	user := uuid.New()
	ctx := context.Background()

	first, err := fx.svc.Follow(ctx, user, creator, po.FollowTargetCreator)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.True(t, first.Following)
	assert.Equal(t, int64(1), first.FollowerCount)

	again, err := fx.svc.Follow(ctx, user, creator, po.FollowTargetCreator)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, int64(1), again.FollowerCount)

	gone, err := fx.svc.Unfollow(ctx, user, creator, po.FollowTargetCreator)
	require.NoError(t, err)
	assert.True(t, gone.Changed)
	assert.False(t, gone.Following)
	assert.Zero(t, gone.FollowerCount)

	noop, err := fx.svc.Unfollow(ctx, user, creator, po.FollowTargetCreator)
	require.NoError(t, err)
	assert.False(t, noop.Changed)
	assert.Zero(t, noop.FollowerCount)
}

func TestFollowSeriesUpdatesSeriesCounter(t *testing.T) {
	fx := newEngagementFixture(false)
	series := uuid.New()
	fx.content.addChapter(uuid.New(), series)

	out, err := fx.svc.Follow(context.Background(), uuid.New(), series, po.FollowTargetSeries)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.FollowerCount)
	assert.Equal(t, int64(1), fx.counters.value(po.EntitySeries, series).FollowerCount)
}

func TestFollowRejections(t *testing.T) {
	fx := newEngagementFixture(false)
	user := uuid.New()
	fx.content.users[user] = true
	ctx := context.Background()

	_, err := fx.svc.Follow(ctx, user, user, po.FollowTargetCreator)
	require.Error(t, err)
	assert.Equal(t, services.ReasonInvalidArgument, reasonOf(err))

	_, err = fx.svc.Follow(ctx, user, uuid.New(), po.FollowTargetCreator)
	require.Error(t, err)
	assert.Equal(t, services.ReasonUserNotFound, reasonOf(err))

	_, err = fx.svc.Follow(ctx, user, uuid.New(), po.FollowTargetSeries)
	require.Error(t, err)
	assert.Equal(t, services.ReasonSeriesNotFound, reasonOf(err))

	_, err = fx.svc.Follow(ctx, user, uuid.New(), po.FollowTargetType("chapter"))
	require.Error(t, err)
	assert.Equal(t, 400, codeOf(err))
}

func TestBookmarkIsIdempotent(t *testing.T) {
	fx := newEngagementFixture(false)
	series := uuid.New()
	fx.content.addChapter(uuid.New(), series)
	user := uuid.New()
	ctx := context.Background()

	first, err := fx.svc.Bookmark(ctx, user, series)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, int64(1), first.BookmarkCount)

	again, err := fx.svc.Bookmark(ctx, user, series)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, int64(1), again.BookmarkCount)

	removed, err := fx.svc.Unbookmark(ctx, user, series)
	require.NoError(t, err)
	assert.True(t, removed.Changed)
	assert.Zero(t, removed.BookmarkCount)

	_, err = fx.svc.Bookmark(ctx, user, uuid.New())
	require.Error(t, err)
	assert.Equal(t, 404, codeOf(err))
}

func TestRateSeriesAdjustsAggregate(t *testing.T) {
	fx := newEngagementFixture(false)
	series := uuid.New()
	fx.content.addChapter(uuid.New(), series)
	alice, bob := uuid.New(), uuid.New()
	ctx := context.Background()

	first, err := fx.svc.RateSeries(ctx, alice, series, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.RatingCount)
	assert.InDelta(t, 4.0, first.AverageRating, 0.0001)

	second, err := fx.svc.RateSeries(ctx, bob, series, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.RatingCount)
	assert.InDelta(t, 3.0, second.AverageRating, 0.0001)

	rerated, err := fx.svc.RateSeries(ctx, alice, series, 5)
	require.NoError(t, err)
	assert.Equal(t, int16(4), rerated.PreviousScore)
	assert.Equal(t, int64(2), rerated.RatingCount, "re-rating does not add a new vote")
	assert.InDelta(t, 3.5, rerated.AverageRating, 0.0001)

	same, err := fx.svc.RateSeries(ctx, alice, series, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, same.AverageRating, 0.0001)

	counters := fx.counters.value(po.EntitySeries, series)
	assert.Equal(t, int64(7), counters.RatingSum)
}

func TestRateSeriesValidatesScore(t *testing.T) {
	fx := newEngagementFixture(false)
	for _, score := range []int{0, 6, -1} {
		_, err := fx.svc.RateSeries(context.Background(), uuid.New(), uuid.New(), score)
		require.Error(t, err)
		assert.Equal(t, services.ReasonInvalidArgument, reasonOf(err))
	}
}

func TestCounterClampOnUnbookmark(t *testing.T) {
	fx := newEngagementFixture(false)
	series := uuid.New()
	user := uuid.New()
	ctx := context.Background()

	// 标记存在但计数器缺失时，减量被截断为 0
	fx.marks.bookmarks[pairKey{user, series}] = true
	out, err := fx.svc.Unbookmark(ctx, user, series)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Zero(t, out.BookmarkCount)

	counters, err := fx.counters.Increment(ctx, nil, po.EntitySeries, series, repositories.CounterDelta{BookmarkDelta: -1})
	require.NoError(t, err)
	assert.True(t, counters.Clamped)
	assert.Zero(t, fx.counters.value(po.EntitySeries, series).BookmarkCount)
}
