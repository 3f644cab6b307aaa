package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/metadata"

	kmetadata "github.com/go-kratos/kratos/v2/metadata"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/google/uuid"
)

// HandlerType 表示 Handler 的语义类别，用于选择超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式区分的 Handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写模型命令 Handler。
	HandlerTypeCommand
	// HandlerTypeQuery 表示读模型查询 Handler。
	HandlerTypeQuery
)

// HandlerTimeouts 聚合不同类型 Handler 的超时策略。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackDefaultTimeout = 5 * time.Second
	headerUserID           = "x-md-global-user-id"
	headerRequestID        = "x-md-request-id"
)

// BaseHandler 提供超时与调用方解析，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 构造基础 Handler。Default 缺省时依次取 Command、Query，再退回 5s；
// 其余类型缺省时沿用 Default。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		timeouts.Default = firstPositive(timeouts.Command, timeouts.Query, fallbackDefaultTimeout)
	}
	timeouts.Command = firstPositive(timeouts.Command, timeouts.Default)
	timeouts.Query = firstPositive(timeouts.Query, timeouts.Default)
	return &BaseHandler{timeouts: timeouts}
}

// WithTimeout 按 Handler 类型为 ctx 绑定超时。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	d := h.timeoutFor(kind)
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (h *BaseHandler) timeoutFor(kind HandlerType) time.Duration {
	switch kind {
	case HandlerTypeCommand:
		return h.timeouts.Command
	case HandlerTypeQuery:
		return h.timeouts.Query
	default:
		return h.timeouts.Default
	}
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// ResolveCaller 解析调用方身份与请求 ID。
// 优先读取 metadata 中间件透传的 x-md-* 键，缺失时回退到原始请求头。
func (h *BaseHandler) ResolveCaller(ctx context.Context) metadata.Caller {
	return metadata.ParseCaller(lookupHeader(ctx, headerUserID), lookupHeader(ctx, headerRequestID))
}

// Caller 把解析结果写入 Context 并返回用户 ID。缺失或非法时为 uuid.Nil，匿名语义由服务层决定。
func (h *BaseHandler) Caller(ctx context.Context) (context.Context, uuid.UUID) {
	caller := h.ResolveCaller(ctx)
	return metadata.WithCaller(ctx, caller), caller.UserID
}

func lookupHeader(ctx context.Context, key string) string {
	if md, ok := kmetadata.FromServerContext(ctx); ok {
		if v := strings.TrimSpace(md.Get(key)); v != "" {
			return v
		}
	}
	if tr, ok := transport.FromServerContext(ctx); ok {
		return strings.TrimSpace(tr.RequestHeader().Get(key))
	}
	return ""
}
