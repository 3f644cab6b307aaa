package controllers

import (
	"context"
	nethttp "net/http"

	"github.com/bionicotaku/lingo-services-reading/internal/services"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// 路由操作名，作为日志与 tracing 的 operation 字段。
const (
	OperationRecordProgress   = "/reading.v1.Ledger/RecordProgress"
	OperationGetProfileStats  = "/reading.v1.Ledger/GetProfileStats"
	OperationContinueReading  = "/reading.v1.Ledger/GetContinueReading"
	OperationRecordView       = "/reading.v1.Engagement/RecordView"
	OperationToggleLike       = "/reading.v1.Engagement/ToggleLike"
	OperationFollow           = "/reading.v1.Engagement/Follow"
	OperationUnfollow         = "/reading.v1.Engagement/Unfollow"
	OperationBookmark         = "/reading.v1.Engagement/Bookmark"
	OperationUnbookmark       = "/reading.v1.Engagement/Unbookmark"
	OperationRateSeries       = "/reading.v1.Engagement/RateSeries"
	OperationTrendingSeries   = "/reading.v1.Ranking/GetTrendingSeries"
	OperationRisingSeries     = "/reading.v1.Ranking/GetRisingSeries"
	OperationTrendingCreators = "/reading.v1.Ranking/GetTrendingCreators"
	OperationCreatorAnalytics = "/reading.v1.Analytics/GetCreatorAnalytics"
)

// RouteRegistrar 由各 Handler 实现，向 HTTP Server 注册自身路由。
type RouteRegistrar interface {
	RegisterRoutes(r *khttp.Router)
}

// NewRouteRegistrars 汇总全部 Handler，供 server 层统一注册。
func NewRouteRegistrars(ledger *LedgerHandler, engagement *EngagementHandler, ranking *RankingHandler) []RouteRegistrar {
	return []RouteRegistrar{ledger, engagement, ranking}
}

// invoke 让请求经过 Server 级中间件链后再执行 fn，结果按 Accept 头编码。
func invoke(c khttp.Context, operation string, in interface{}, fn middleware.Handler) error {
	khttp.SetOperation(c, operation)
	h := c.Middleware(fn)
	out, err := h(c, in)
	if err != nil {
		return err
	}
	return c.Result(nethttp.StatusOK, out)
}

func badRequest(err error) error {
	return errors.BadRequest(services.ReasonInvalidArgument, err.Error())
}

// withCaller 合并身份解析与超时设置；requireAuth 时匿名请求直接返回 401。
func (h *BaseHandler) withCaller(ctx context.Context, kind HandlerType, requireAuth bool) (context.Context, context.CancelFunc, uuid.UUID, error) {
	ctx, caller := h.Caller(ctx)
	if requireAuth && caller == uuid.Nil {
		return ctx, func() {}, caller, services.ErrUnauthenticated
	}
	timeoutCtx, cancel := h.WithTimeout(ctx, kind)
	return timeoutCtx, cancel, caller, nil
}
