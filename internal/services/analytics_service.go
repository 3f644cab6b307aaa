package services

import (
	"context"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/models/vo"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TransactionStore 汇总金币流水。流水表由支付侧追加，本服务只读。
type TransactionStore interface {
	SumUnlockEarnings(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) (int64, error)
}

// AnalyticsService 汇总创作者维度的数据。
type AnalyticsService struct {
	content      ContentReader
	counters     CounterStore
	transactions TransactionStore
	txManager    txmanager.Manager
	metrics      *LedgerMetrics
	log          *log.Helper
}

// NewAnalyticsService 构造创作者分析服务。
func NewAnalyticsService(content ContentReader, counters CounterStore, transactions TransactionStore, tx txmanager.Manager, metrics *LedgerMetrics, logger log.Logger) *AnalyticsService {
	return &AnalyticsService{
		content:      content,
		counters:     counters,
		transactions: transactions,
		txManager:    tx,
		metrics:      metrics,
		log:          log.NewHelper(logger),
	}
}

// CreatorAnalytics 返回作者的总浏览量、粉丝数、解锁收入与连载中作品数。
//
// 三路读取并发走连接池；任一路失败时返回全零汇总并标记 Degraded。
func (s *AnalyticsService) CreatorAnalytics(ctx context.Context, creatorID uuid.UUID) (*vo.CreatorAnalytics, error) {
	if creatorID == uuid.Nil {
		return nil, invalidArgument("creator_id is required")
	}

	var (
		totalViews   int64
		activeSeries int64
		followers    int64
		coins        int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := s.content.ListCreatorSeriesStats(gctx, nil, creatorID)
		if err != nil {
			return err
		}
		for _, item := range series {
			totalViews += item.ViewCount
			if item.Status == po.SeriesStatusOngoing {
				activeSeries++
			}
		}
		return nil
	})
	g.Go(func() error {
		counters, err := s.counters.Get(gctx, nil, po.EntityCreator, creatorID)
		if err != nil {
			return err
		}
		followers = counters.FollowerCount
		return nil
	})
	g.Go(func() error {
		total, err := s.transactions.SumUnlockEarnings(gctx, nil, creatorID)
		if err != nil {
			return err
		}
		coins = total
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.WithContext(ctx).Warnw("msg", "creator analytics degraded to zero summary", "creator_id", creatorID.String(), "error", err)
		s.metrics.recordDegraded(ctx, "creator_analytics")
		return &vo.CreatorAnalytics{CreatorID: creatorID, Degraded: true}, nil
	}

	return &vo.CreatorAnalytics{
		CreatorID:         creatorID,
		TotalViews:        totalViews,
		Followers:         followers,
		CoinsEarned:       coins,
		ActiveSeriesCount: activeSeries,
	}, nil
}
