package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-reading/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-reading/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// EngagementHandler 暴露浏览、点赞、关注、收藏与评分接口。
type EngagementHandler struct {
	*BaseHandler
	svc *services.EngagementService
}

// NewEngagementHandler 构造 EngagementHandler。
func NewEngagementHandler(svc *services.EngagementService, base *BaseHandler) *EngagementHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &EngagementHandler{BaseHandler: base, svc: svc}
}

// RegisterRoutes 实现 RouteRegistrar。
func (h *EngagementHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/v1/chapters/{chapter_id}/view", h.RecordView)
	r.POST("/v1/chapters/{chapter_id}/like", h.ToggleLike)
	r.PUT("/v1/follows/{target_type}/{target_id}", h.Follow)
	r.DELETE("/v1/follows/{target_type}/{target_id}", h.Unfollow)
	r.PUT("/v1/bookmarks/{series_id}", h.Bookmark)
	r.DELETE("/v1/bookmarks/{series_id}", h.Unbookmark)
	r.PUT("/v1/series/{series_id}/rating", h.RateSeries)
}

// RecordView 处理 POST /v1/chapters/{chapter_id}/view；匿名请求每次都计数。
func (h *EngagementHandler) RecordView(c khttp.Context) error {
	chapterRaw := c.Vars().Get("chapter_id")

	return invoke(c, OperationRecordView, chapterRaw, func(ctx context.Context, req interface{}) (interface{}, error) {
		chapterID, err := dto.ParseID("chapter_id", req.(string))
		if err != nil {
			return nil, badRequest(err)
		}
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeCommand, false)
		defer cancel()
		if err != nil {
			return nil, err
		}
		return h.svc.RecordView(ctx, caller, chapterID)
	})
}

// ToggleLike 处理 POST /v1/chapters/{chapter_id}/like。
func (h *EngagementHandler) ToggleLike(c khttp.Context) error {
	chapterRaw := c.Vars().Get("chapter_id")

	return invoke(c, OperationToggleLike, chapterRaw, func(ctx context.Context, req interface{}) (interface{}, error) {
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeCommand, true)
		defer cancel()
		if err != nil {
			return nil, err
		}
		chapterID, err := dto.ParseID("chapter_id", req.(string))
		if err != nil {
			return nil, badRequest(err)
		}
		return h.svc.ToggleLike(ctx, caller, chapterID)
	})
}

// Follow 处理 PUT /v1/follows/{target_type}/{target_id}。
func (h *EngagementHandler) Follow(c khttp.Context) error {
	return h.changeFollow(c, OperationFollow, true)
}

// Unfollow 处理 DELETE /v1/follows/{target_type}/{target_id}。
func (h *EngagementHandler) Unfollow(c khttp.Context) error {
	return h.changeFollow(c, OperationUnfollow, false)
}

type followPath struct {
	targetType string
	targetID   string
}

func (h *EngagementHandler) changeFollow(c khttp.Context, operation string, follow bool) error {
	vars := c.Vars()
	path := followPath{targetType: vars.Get("target_type"), targetID: vars.Get("target_id")}

	return invoke(c, operation, path, func(ctx context.Context, req interface{}) (interface{}, error) {
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeCommand, true)
		defer cancel()
		if err != nil {
			return nil, err
		}
		p := req.(followPath)
		targetType, err := services.ParseFollowTarget(p.targetType)
		if err != nil {
			return nil, err
		}
		targetID, err := dto.ParseID("target_id", p.targetID)
		if err != nil {
			return nil, badRequest(err)
		}
		if follow {
			return h.svc.Follow(ctx, caller, targetID, targetType)
		}
		return h.svc.Unfollow(ctx, caller, targetID, targetType)
	})
}

// Bookmark 处理 PUT /v1/bookmarks/{series_id}。
func (h *EngagementHandler) Bookmark(c khttp.Context) error {
	return h.changeBookmark(c, OperationBookmark, true)
}

// Unbookmark 处理 DELETE /v1/bookmarks/{series_id}。
func (h *EngagementHandler) Unbookmark(c khttp.Context) error {
	return h.changeBookmark(c, OperationUnbookmark, false)
}

func (h *EngagementHandler) changeBookmark(c khttp.Context, operation string, bookmark bool) error {
	seriesRaw := c.Vars().Get("series_id")

	return invoke(c, operation, seriesRaw, func(ctx context.Context, req interface{}) (interface{}, error) {
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeCommand, true)
		defer cancel()
		if err != nil {
			return nil, err
		}
		seriesID, err := dto.ParseID("series_id", req.(string))
		if err != nil {
			return nil, badRequest(err)
		}
		if bookmark {
			return h.svc.Bookmark(ctx, caller, seriesID)
		}
		return h.svc.Unbookmark(ctx, caller, seriesID)
	})
}

// RateSeries 处理 PUT /v1/series/{series_id}/rating。
func (h *EngagementHandler) RateSeries(c khttp.Context) error {
	var body dto.RatingRequest
	if err := c.Bind(&body); err != nil {
		return err
	}
	seriesRaw := c.Vars().Get("series_id")

	return invoke(c, OperationRateSeries, &body, func(ctx context.Context, req interface{}) (interface{}, error) {
		ctx, cancel, caller, err := h.withCaller(ctx, HandlerTypeCommand, true)
		defer cancel()
		if err != nil {
			return nil, err
		}
		seriesID, err := dto.ParseID("series_id", seriesRaw)
		if err != nil {
			return nil, badRequest(err)
		}
		return h.svc.RateSeries(ctx, caller, seriesID, req.(*dto.RatingRequest).Score)
	})
}
