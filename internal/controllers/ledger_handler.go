package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-reading/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-reading/internal/services"
	"github.com/bionicotaku/lingo-services-reading/internal/views"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// LedgerHandler 暴露阅读进度、画像统计与继续阅读接口。
type LedgerHandler struct {
	*BaseHandler
	svc *services.LedgerService
}

// NewLedgerHandler 构造 LedgerHandler。
func NewLedgerHandler(svc *services.LedgerService, base *BaseHandler) *LedgerHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &LedgerHandler{BaseHandler: base, svc: svc}
}

// RegisterRoutes 实现 RouteRegistrar。
func (h *LedgerHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/v1/chapters/{chapter_id}/progress", h.RecordProgress)
	r.GET("/v1/users/{user_id}/stats", h.GetProfileStats)
	r.GET("/v1/me/continue-reading", h.GetContinueReading)
}

// RecordProgress 处理 POST /v1/chapters/{chapter_id}/progress。
func (h *LedgerHandler) RecordProgress(c khttp.Context) error {
	var body dto.ProgressRequest
	if err := c.Bind(&body); err != nil {
		return err
	}
	chapterRaw := c.Vars().Get("chapter_id")

	return invoke(c, OperationRecordProgress, &body, func(ctx context.Context, req interface{}) (interface{}, error) {
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeCommand, true)
		defer cancel()
		if err != nil {
			return nil, err
		}
		input, err := dto.ToRecordProgressInput(caller, chapterRaw, *req.(*dto.ProgressRequest))
		if err != nil {
			return nil, badRequest(err)
		}
		return h.svc.RecordProgress(ctx, input)
	})
}

// GetProfileStats 处理 GET /v1/users/{user_id}/stats，无需登录。
func (h *LedgerHandler) GetProfileStats(c khttp.Context) error {
	userRaw := c.Vars().Get("user_id")

	return invoke(c, OperationGetProfileStats, userRaw, func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, err := dto.ParseID("user_id", req.(string))
		if err != nil {
			return nil, badRequest(err)
		}
		ctx, cancel, _, err := h.withCaller(ctx, HandlerTypeQuery, false)
		defer cancel()
		if err != nil {
			return nil, err
		}
		return h.svc.GetProfileStats(ctx, userID)
	})
}

// GetContinueReading 处理 GET /v1/me/continue-reading?limit=。
func (h *LedgerHandler) GetContinueReading(c khttp.Context) error {
	limitRaw := c.Query().Get("limit")

	return invoke(c, OperationContinueReading, limitRaw, func(ctx context.Context, req interface{}) (interface{}, error) {
		limit, err := dto.ParseLimit(req.(string))
		if err != nil {
			return nil, badRequest(err)
		}
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeQuery, true)
		defer cancel()
		if err != nil {
			return nil, err
		}
		items, err := h.svc.ContinueReading(ctx, caller, limit)
		if err != nil {
			return nil, err
		}
		return views.NewContinueReadingResponse(caller, items), nil
	})
}
