package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-reading/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-reading/internal/models/vo"
	"github.com/bionicotaku/lingo-services-reading/internal/services"
	"github.com/bionicotaku/lingo-services-reading/internal/views"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// RankingHandler 暴露排行榜与创作者分析接口。金币流水由支付侧写入，这里只读。
type RankingHandler struct {
	*BaseHandler
	ranking   *services.RankingService
	analytics *services.AnalyticsService
}

// NewRankingHandler 构造 RankingHandler。
func NewRankingHandler(ranking *services.RankingService, analytics *services.AnalyticsService, base *BaseHandler) *RankingHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &RankingHandler{BaseHandler: base, ranking: ranking, analytics: analytics}
}

// RegisterRoutes 实现 RouteRegistrar。
func (h *RankingHandler) RegisterRoutes(r *khttp.Router) {
	r.GET("/v1/rankings/series/trending", h.GetTrendingSeries)
	r.GET("/v1/rankings/series/rising", h.GetRisingSeries)
	r.GET("/v1/rankings/creators/trending", h.GetTrendingCreators)
	r.GET("/v1/creators/{creator_id}/analytics", h.GetCreatorAnalytics)
}

type rankingQuery struct {
	window string
	limit  string
}

type rankingFunc func(ctx context.Context, window string, limit int) (*vo.RankingList, error)

// GetTrendingSeries 处理 GET /v1/rankings/series/trending。
func (h *RankingHandler) GetTrendingSeries(c khttp.Context) error {
	return h.serveRanking(c, OperationTrendingSeries, h.ranking.TrendingSeries)
}

// GetRisingSeries 处理 GET /v1/rankings/series/rising。
func (h *RankingHandler) GetRisingSeries(c khttp.Context) error {
	return h.serveRanking(c, OperationRisingSeries, h.ranking.RisingSeries)
}

// GetTrendingCreators 处理 GET /v1/rankings/creators/trending。
func (h *RankingHandler) GetTrendingCreators(c khttp.Context) error {
	return h.serveRanking(c, OperationTrendingCreators, h.ranking.TrendingCreators)
}

func (h *RankingHandler) serveRanking(c khttp.Context, operation string, fetch rankingFunc) error {
	query := c.Query()
	in := rankingQuery{window: query.Get("window"), limit: query.Get("limit")}

	return invoke(c, operation, in, func(ctx context.Context, req interface{}) (interface{}, error) {
		q := req.(rankingQuery)
		limit, err := dto.ParseLimit(q.limit)
		if err != nil {
			return nil, badRequest(err)
		}
		ctx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
		defer cancel()
		list, err := fetch(ctx, q.window, limit)
		if err != nil {
			return nil, err
		}
		return views.NewRankingResponse(list), nil
	})
}

// GetCreatorAnalytics 处理 GET /v1/creators/{creator_id}/analytics。
func (h *RankingHandler) GetCreatorAnalytics(c khttp.Context) error {
	creatorRaw := c.Vars().Get("creator_id")

	return invoke(c, OperationCreatorAnalytics, creatorRaw, func(ctx context.Context, req interface{}) (interface{}, error) {
		creatorID, err := dto.ParseID("creator_id", req.(string))
		if err != nil {
			return nil, badRequest(err)
		}
		ctx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
		defer cancel()
		return h.analytics.CreatorAnalytics(ctx, creatorID)
	})
}
