package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/models/vo"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
)

// RankingWindow 是排行查询的窗口提示。
// 计数器不分时间窗存储，窗口只做校验与回显，不改变排序结果。
type RankingWindow string

// 支持的窗口提示
const (
	WindowToday RankingWindow = "today"
	WindowWeek  RankingWindow = "week"
	WindowMonth RankingWindow = "month"
	WindowAll   RankingWindow = "all"
)

// ParseRankingWindow 解析窗口提示，空串视为 all。
func ParseRankingWindow(raw string) (RankingWindow, error) {
	switch w := RankingWindow(strings.ToLower(strings.TrimSpace(raw))); w {
	case "":
		return WindowAll, nil
	case WindowToday, WindowWeek, WindowMonth, WindowAll:
		return w, nil
	default:
		return "", invalidArgument("window must be one of today, week, month, all")
	}
}

// 排行默认参数
const (
	DefaultRankingLimit    = 20
	DefaultRankingMaxLimit = 100
	DefaultRisingWindow    = 30 * 24 * time.Hour
	DefaultRisingViewFloor = int64(100)
)

// 排行种类与实体名称，回显在结果中。
const (
	rankingKindTrending = "trending"
	rankingKindRising   = "rising"
	rankingEntitySeries = "series"
	rankingEntityAuthor = "creator"
)

// TieBreaker 选择浏览量相同时的第二排序键。
type TieBreaker func(po.RankCandidate) int64

// 系列按收藏数、作者按粉丝数打破平局。
var (
	SeriesTieBreaker  TieBreaker = func(c po.RankCandidate) int64 { return c.BookmarkCount }
	CreatorTieBreaker TieBreaker = func(c po.RankCandidate) int64 { return c.FollowerCount }
)

// RankTrending 按浏览量降序排序，平局依次比较 tieBreak 降序与实体 ID 升序。
func RankTrending(candidates []po.RankCandidate, tieBreak TieBreaker, limit int) []po.RankCandidate {
	out := append([]po.RankCandidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		if ta, tb := tieBreak(a), tieBreak(b); ta != tb {
			return ta > tb
		}
		return a.EntityID.String() < b.EntityID.String()
	})
	return truncate(out, limit)
}

// RankRising 只保留 window 内创建且浏览量高于 floor 的实体，
// 按浏览量降序、创建时间降序排序。
func RankRising(candidates []po.RankCandidate, now time.Time, window time.Duration, floor int64, limit int) []po.RankCandidate {
	cutoff := now.Add(-window)
	out := make([]po.RankCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.CreatedAt.Before(cutoff) || c.ViewCount <= floor {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.EntityID.String() < b.EntityID.String()
	})
	return truncate(out, limit)
}

func truncate(in []po.RankCandidate, limit int) []po.RankCandidate {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

// RankingReader 读取排行候选集。
type RankingReader interface {
	ListTrendingSeries(ctx context.Context, sess txmanager.Session, limit int) ([]po.RankCandidate, error)
	ListRisingSeries(ctx context.Context, sess txmanager.Session, createdAfter time.Time, viewFloor int64, limit int) ([]po.RankCandidate, error)
	ListTrendingCreators(ctx context.Context, sess txmanager.Session, limit int) ([]po.RankCandidate, error)
}

// RankingConfig 配置 Rising 的时间窗与热度门槛。
type RankingConfig struct {
	RisingWindow    time.Duration
	RisingViewFloor int64
	MaxLimit        int
	Now             func() time.Time
}

func (c RankingConfig) withDefaults() RankingConfig {
	if c.RisingWindow <= 0 {
		c.RisingWindow = DefaultRisingWindow
	}
	if c.RisingViewFloor < 0 {
		c.RisingViewFloor = DefaultRisingViewFloor
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = DefaultRankingMaxLimit
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// RankingService 在读时计算排行，不持久化任何快照。
// 存储读取失败时返回空列表并标记 Degraded。
type RankingService struct {
	repo      RankingReader
	txManager txmanager.Manager
	metrics   *LedgerMetrics
	cfg       RankingConfig
	log       *log.Helper
}

// NewRankingService 构造排行服务。
func NewRankingService(repo RankingReader, tx txmanager.Manager, metrics *LedgerMetrics, cfg RankingConfig, logger log.Logger) *RankingService {
	return &RankingService{
		repo:      repo,
		txManager: tx,
		metrics:   metrics,
		cfg:       cfg.withDefaults(),
		log:       log.NewHelper(logger),
	}
}

// TrendingSeries 返回热门连载榜。
func (s *RankingService) TrendingSeries(ctx context.Context, window string, limit int) (*vo.RankingList, error) {
	return s.rank(ctx, rankingKindTrending, rankingEntitySeries, window, limit,
		func(txCtx context.Context, sess txmanager.Session, n int, _ time.Time) ([]po.RankCandidate, error) {
			candidates, err := s.repo.ListTrendingSeries(txCtx, sess, n)
			if err != nil {
				return nil, err
			}
			return RankTrending(candidates, SeriesTieBreaker, n), nil
		})
}

// RisingSeries 返回新锐连载榜。
func (s *RankingService) RisingSeries(ctx context.Context, window string, limit int) (*vo.RankingList, error) {
	return s.rank(ctx, rankingKindRising, rankingEntitySeries, window, limit,
		func(txCtx context.Context, sess txmanager.Session, n int, now time.Time) ([]po.RankCandidate, error) {
			candidates, err := s.repo.ListRisingSeries(txCtx, sess, now.Add(-s.cfg.RisingWindow), s.cfg.RisingViewFloor, n)
			if err != nil {
				return nil, err
			}
			return RankRising(candidates, now, s.cfg.RisingWindow, s.cfg.RisingViewFloor, n), nil
		})
}

// TrendingCreators 返回热门作者榜。
func (s *RankingService) TrendingCreators(ctx context.Context, window string, limit int) (*vo.RankingList, error) {
	return s.rank(ctx, rankingKindTrending, rankingEntityAuthor, window, limit,
		func(txCtx context.Context, sess txmanager.Session, n int, _ time.Time) ([]po.RankCandidate, error) {
			candidates, err := s.repo.ListTrendingCreators(txCtx, sess, n)
			if err != nil {
				return nil, err
			}
			return RankTrending(candidates, CreatorTieBreaker, n), nil
		})
}

type rankFetcher func(ctx context.Context, sess txmanager.Session, limit int, now time.Time) ([]po.RankCandidate, error)

func (s *RankingService) rank(ctx context.Context, kind, entity, rawWindow string, limit int, fetch rankFetcher) (*vo.RankingList, error) {
	window, err := ParseRankingWindow(rawWindow)
	if err != nil {
		return nil, err
	}
	limit = s.normalizeLimit(limit)
	now := s.cfg.Now().UTC()

	list := &vo.RankingList{
		Kind:        kind,
		Entity:      entity,
		Window:      string(window),
		Entries:     []vo.RankedEntry{},
		GeneratedAt: now,
	}

	var ranked []po.RankCandidate
	err = s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var fetchErr error
		ranked, fetchErr = fetch(txCtx, sess, limit, now)
		return fetchErr
	})
	if err != nil {
		s.log.WithContext(ctx).Warnw("msg", "ranking degraded to empty list", "kind", kind, "entity", entity, "error", err)
		s.metrics.recordDegraded(ctx, kind+"_"+entity)
		list.Degraded = true
		return list, nil
	}

	for i, c := range ranked {
		list.Entries = append(list.Entries, vo.NewRankedEntry(i+1, c))
	}
	return list, nil
}

func (s *RankingService) normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		if DefaultRankingLimit > s.cfg.MaxLimit {
			return s.cfg.MaxLimit
		}
		return DefaultRankingLimit
	case limit > s.cfg.MaxLimit:
		return s.cfg.MaxLimit
	default:
		return limit
	}
}
