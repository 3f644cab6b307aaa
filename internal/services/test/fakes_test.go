package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

// lockingTxManager 串行执行事务闭包，模拟数据库对同一行的串行化。
type lockingTxManager struct {
	mu sync.Mutex
}

func (m *lockingTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, noopSession{})
}

func (m *lockingTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

// passthroughTxManager 直接执行闭包，不做串行化，并发用例中写路径可任意交错。
type passthroughTxManager struct{}

func (passthroughTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (passthroughTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

type pairKey struct {
	a uuid.UUID
	b uuid.UUID
}

type followKey struct {
	user   uuid.UUID
	target uuid.UUID
	kind   po.FollowTargetType
}

type counterKey struct {
	entity po.EntityType
	id     uuid.UUID
}

// fakeContent 持有章节、连载与用户的引用数据。
type fakeContent struct {
	mu       sync.Mutex
	chapters map[uuid.UUID]po.ChapterRef
	series   map[uuid.UUID]po.Series
	users    map[uuid.UUID]bool
	stats    map[uuid.UUID][]repositories.CreatorSeriesStats
	err      error
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		chapters: map[uuid.UUID]po.ChapterRef{},
		series:   map[uuid.UUID]po.Series{},
		users:    map[uuid.UUID]bool{},
		stats:    map[uuid.UUID][]repositories.CreatorSeriesStats{},
	}
}

// addChapter 注册作者、连载与章节，返回章节引用。
func (f *fakeContent) addChapter(creatorID, seriesID uuid.UUID) po.ChapterRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[creatorID] = true
	if _, ok := f.series[seriesID]; !ok {
		f.series[seriesID] = po.Series{SeriesID: seriesID, CreatorID: creatorID, Title: "series", Status: po.SeriesStatusOngoing}
	}
	ref := po.ChapterRef{ChapterID: uuid.New(), SeriesID: seriesID, CreatorID: creatorID}
	f.chapters[ref.ChapterID] = ref
	return ref
}

func (f *fakeContent) GetChapterRef(_ context.Context, _ txmanager.Session, chapterID uuid.UUID) (*po.ChapterRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ref, ok := f.chapters[chapterID]
	if !ok {
		return nil, fmt.Errorf("get chapter %s: %w", chapterID, repositories.ErrChapterNotFound)
	}
	return &ref, nil
}

func (f *fakeContent) GetSeries(_ context.Context, _ txmanager.Session, seriesID uuid.UUID) (*po.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.series[seriesID]
	if !ok {
		return nil, fmt.Errorf("get series %s: %w", seriesID, repositories.ErrSeriesNotFound)
	}
	return &s, nil
}

func (f *fakeContent) UserExists(_ context.Context, _ txmanager.Session, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.users[userID], nil
}

func (f *fakeContent) ListCreatorSeriesStats(_ context.Context, _ txmanager.Session, creatorID uuid.UUID) ([]repositories.CreatorSeriesStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]repositories.CreatorSeriesStats(nil), f.stats[creatorID]...), nil
}

// fakeActivity 是只追加的阅读记录与最新进度。
type fakeActivity struct {
	mu       sync.Mutex
	records  []po.ActivityRecord
	progress map[pairKey]po.ActivityRecord
}

func newFakeActivity() *fakeActivity {
	return &fakeActivity{progress: map[pairKey]po.ActivityRecord{}}
}

func (f *fakeActivity) Append(_ context.Context, _ txmanager.Session, record po.ActivityRecord) (*po.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.RecordID = uuid.New()
	f.records = append(f.records, record)
	return &record, nil
}

func (f *fakeActivity) UpsertProgress(_ context.Context, _ txmanager.Session, record po.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[pairKey{record.UserID, record.ChapterID}] = record
	return nil
}

func (f *fakeActivity) ListRecent(_ context.Context, _ txmanager.Session, userID uuid.UUID, limit int) ([]po.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []po.ActivityRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TouchedAt.After(out[j].TouchedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeActivity) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeMarks 实现完成、浏览、点赞、关注、收藏与评分标记。
type fakeMarks struct {
	mu          sync.Mutex
	completions map[pairKey]po.CompletionMark
	views       map[pairKey]time.Time
	likes       map[pairKey]bool
	follows     map[followKey]bool
	bookmarks   map[pairKey]bool
	ratings     map[pairKey]int16
}

func newFakeMarks() *fakeMarks {
	return &fakeMarks{
		completions: map[pairKey]po.CompletionMark{},
		views:       map[pairKey]time.Time{},
		likes:       map[pairKey]bool{},
		follows:     map[followKey]bool{},
		bookmarks:   map[pairKey]bool{},
		ratings:     map[pairKey]int16{},
	}
}

func (f *fakeMarks) UpsertCompletionMark(_ context.Context, _ txmanager.Session, mark po.CompletionMark) (*po.CompletionMark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{mark.UserID, mark.ChapterID}
	if existing, ok := f.completions[key]; ok {
		existing.LastCompletedAt = mark.LastCompletedAt
		existing.Inserted = false
		f.completions[key] = existing
		return &existing, nil
	}
	mark.FirstCompletedAt = mark.LastCompletedAt
	mark.Inserted = true
	f.completions[key] = mark
	return &mark, nil
}

func (f *fakeMarks) MarkViewed(_ context.Context, _ txmanager.Session, userID, chapterID uuid.UUID, viewedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{userID, chapterID}
	if _, ok := f.views[key]; ok {
		return false, nil
	}
	f.views[key] = viewedAt
	return true, nil
}

func (f *fakeMarks) ToggleLike(_ context.Context, _ txmanager.Session, userID, chapterID uuid.UUID) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{userID, chapterID}
	if f.likes[key] {
		delete(f.likes, key)
		return false, true, nil
	}
	f.likes[key] = true
	return true, true, nil
}

func (f *fakeMarks) InsertFollow(_ context.Context, _ txmanager.Session, userID, targetID uuid.UUID, targetType po.FollowTargetType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := followKey{userID, targetID, targetType}
	if f.follows[key] {
		return false, nil
	}
	f.follows[key] = true
	return true, nil
}

func (f *fakeMarks) DeleteFollow(_ context.Context, _ txmanager.Session, userID, targetID uuid.UUID, targetType po.FollowTargetType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := followKey{userID, targetID, targetType}
	if !f.follows[key] {
		return false, nil
	}
	delete(f.follows, key)
	return true, nil
}

func (f *fakeMarks) CountFollowing(_ context.Context, _ txmanager.Session, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key := range f.follows {
		if key.user == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeMarks) InsertBookmark(_ context.Context, _ txmanager.Session, userID, seriesID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{userID, seriesID}
	if f.bookmarks[key] {
		return false, nil
	}
	f.bookmarks[key] = true
	return true, nil
}

func (f *fakeMarks) DeleteBookmark(_ context.Context, _ txmanager.Session, userID, seriesID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{userID, seriesID}
	if !f.bookmarks[key] {
		return false, nil
	}
	delete(f.bookmarks, key)
	return true, nil
}

func (f *fakeMarks) UpsertRating(_ context.Context, _ txmanager.Session, userID, seriesID uuid.UUID, score int16) (*po.RatingMark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey{userID, seriesID}
	prev, existed := f.ratings[key]
	f.ratings[key] = score
	mark := &po.RatingMark{UserID: userID, SeriesID: seriesID, Score: score, Inserted: !existed}
	if existed {
		mark.PreviousScore = prev
	}
	return mark, nil
}

// fakeProfiles 保存用户阅读画像。
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]po.UserActivityProfile
	repairs  int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[uuid.UUID]po.UserActivityProfile{}}
}

func (f *fakeProfiles) seed(profile po.UserActivityProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = profile
}

func (f *fakeProfiles) snapshot(userID uuid.UUID) po.UserActivityProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(userID)
}

func (f *fakeProfiles) load(userID uuid.UUID) po.UserActivityProfile {
	p, ok := f.profiles[userID]
	if !ok {
		return po.UserActivityProfile{UserID: userID, ActivityDates: []string{}}
	}
	p.ActivityDates = append([]string{}, p.ActivityDates...)
	return p
}

func (f *fakeProfiles) Get(_ context.Context, _ txmanager.Session, userID uuid.UUID) (*po.UserActivityProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.load(userID)
	return &p, nil
}

func (f *fakeProfiles) GetForUpdate(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.UserActivityProfile, error) {
	return f.Get(ctx, sess, userID)
}

func (f *fakeProfiles) IncrementCompleted(_ context.Context, _ txmanager.Session, userID uuid.UUID, delta int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.load(userID)
	p.TotalChaptersCompleted += delta
	f.profiles[userID] = p
	return p.TotalChaptersCompleted, nil
}

func (f *fakeProfiles) SaveStreak(_ context.Context, _ txmanager.Session, userID uuid.UUID, update repositories.StreakUpdate) (*po.UserActivityProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.load(userID)
	p.ActivityDates = append([]string{}, update.ActivityDates...)
	p.ReadingStreak = update.ReadingStreak
	if update.LastReadAt != nil {
		p.LastReadAt = update.LastReadAt
	}
	if update.LastReadChapterID != nil {
		p.LastReadChapterID = update.LastReadChapterID
	}
	f.profiles[userID] = p
	return &p, nil
}

func (f *fakeProfiles) RepairStreak(_ context.Context, _ txmanager.Session, userID uuid.UUID, streak int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok || p.ReadingStreak == streak {
		return false, nil
	}
	p.ReadingStreak = streak
	f.profiles[userID] = p
	f.repairs++
	return true, nil
}

// fakeCounters 按实体保存计数器，负值截断为 0。
type fakeCounters struct {
	mu       sync.Mutex
	counters map[counterKey]po.EngagementCounters
	err      error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counters: map[counterKey]po.EngagementCounters{}}
}

func clampAdd(v, delta int64) (int64, bool) {
	if v+delta < 0 {
		return 0, true
	}
	return v + delta, false
}

func (f *fakeCounters) Increment(_ context.Context, _ txmanager.Session, entityType po.EntityType, entityID uuid.UUID, delta repositories.CounterDelta) (*po.EngagementCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := counterKey{entityType, entityID}
	c := f.counters[key]
	c.EntityType, c.EntityID = entityType, entityID

	var clamped, hit bool
	c.ViewCount, hit = clampAdd(c.ViewCount, delta.ViewDelta)
	clamped = clamped || hit
	c.LikeCount, hit = clampAdd(c.LikeCount, delta.LikeDelta)
	clamped = clamped || hit
	c.BookmarkCount, hit = clampAdd(c.BookmarkCount, delta.BookmarkDelta)
	clamped = clamped || hit
	c.FollowerCount, hit = clampAdd(c.FollowerCount, delta.FollowerDelta)
	clamped = clamped || hit
	c.RatingSum, hit = clampAdd(c.RatingSum, delta.RatingSumDelta)
	clamped = clamped || hit
	c.RatingCount, hit = clampAdd(c.RatingCount, delta.RatingCountDelta)
	clamped = clamped || hit

	c.Clamped = false
	f.counters[key] = c
	c.Clamped = clamped
	return &c, nil
}

func (f *fakeCounters) Get(_ context.Context, _ txmanager.Session, entityType po.EntityType, entityID uuid.UUID) (*po.EngagementCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := f.counters[counterKey{entityType, entityID}]
	c.EntityType, c.EntityID = entityType, entityID
	return &c, nil
}

func (f *fakeCounters) value(entityType po.EntityType, entityID uuid.UUID) po.EngagementCounters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[counterKey{entityType, entityID}]
}

// fakeViewCache 模拟 Redis 浏览标记。
type fakeViewCache struct {
	mu         sync.Mutex
	seen       map[pairKey]bool
	remembered int
	err        error
}

func newFakeViewCache() *fakeViewCache {
	return &fakeViewCache{seen: map[pairKey]bool{}}
}

func (f *fakeViewCache) SeenRecently(_ context.Context, userID, chapterID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.seen[pairKey{userID, chapterID}], nil
}

func (f *fakeViewCache) Remember(_ context.Context, userID, chapterID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[pairKey{userID, chapterID}] = true
	f.remembered++
}

// fakeTransactions 保存金币流水。
type fakeTransactions struct {
	mu   sync.Mutex
	rows []po.Transaction
	err  error
}

func (f *fakeTransactions) SumUnlockEarnings(_ context.Context, _ txmanager.Session, creatorID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var sum int64
	for _, row := range f.rows {
		if row.Kind == po.TransactionUnlock && row.Amount > 0 && row.CreatorID != nil && *row.CreatorID == creatorID {
			sum += row.Amount
		}
	}
	return sum, nil
}

// fakeRanking 返回预置的候选集并记录查询参数。
type fakeRanking struct {
	trending     []po.RankCandidate
	rising       []po.RankCandidate
	creators     []po.RankCandidate
	err          error
	lastLimit    int
	createdAfter time.Time
	viewFloor    int64
}

func (f *fakeRanking) ListTrendingSeries(_ context.Context, _ txmanager.Session, limit int) ([]po.RankCandidate, error) {
	f.lastLimit = limit
	return f.trending, f.err
}

func (f *fakeRanking) ListRisingSeries(_ context.Context, _ txmanager.Session, createdAfter time.Time, viewFloor int64, limit int) ([]po.RankCandidate, error) {
	f.lastLimit = limit
	f.createdAfter = createdAfter
	f.viewFloor = viewFloor
	return f.rising, f.err
}

func (f *fakeRanking) ListTrendingCreators(_ context.Context, _ txmanager.Session, limit int) ([]po.RankCandidate, error) {
	f.lastLimit = limit
	return f.creators, f.err
}
