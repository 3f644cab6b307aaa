// Package metadata 保存一次请求的调用方信息。控制器写入，服务层与日志读取。
package metadata

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Caller 是上游网关透传的调用方身份。UserID 为 uuid.Nil 表示匿名读者。
type Caller struct {
	UserID    uuid.UUID
	RequestID string
	// Malformed 表示请求携带了用户头但无法解析，按匿名处理。
	Malformed bool
}

// Anonymous 判断调用方是否未认证。
func (c Caller) Anonymous() bool {
	return c.UserID == uuid.Nil
}

// ParseCaller 由原始头部值构造 Caller。
func ParseCaller(rawUserID, requestID string) Caller {
	c := Caller{RequestID: strings.TrimSpace(requestID)}
	raw := strings.TrimSpace(rawUserID)
	if raw == "" {
		return c
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		c.Malformed = true
		return c
	}
	c.UserID = id
	return c
}

type callerKey struct{}

// WithCaller 将 Caller 写入 Context。
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom 读取 Context 中的 Caller。
func CallerFrom(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// UserIDFrom 返回调用方用户 ID，缺失时为 uuid.Nil。
func UserIDFrom(ctx context.Context) uuid.UUID {
	c, _ := CallerFrom(ctx)
	return c.UserID
}
