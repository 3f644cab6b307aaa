package controllers_test

import (
	"context"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/controllers"
	loader "github.com/bionicotaku/lingo-services-reading/internal/infrastructure/config_loader"
	"github.com/bionicotaku/lingo-services-reading/internal/metadata"

	kmetadata "github.com/go-kratos/kratos/v2/metadata"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerCarrier nethttp.Header

func (h headerCarrier) Get(key string) string { return nethttp.Header(h).Get(key) }
func (h headerCarrier) Set(key, value string) { nethttp.Header(h).Set(key, value) }
func (h headerCarrier) Add(key, value string) { nethttp.Header(h).Add(key, value) }
func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
func (h headerCarrier) Values(key string) []string { return nethttp.Header(h).Values(key) }

type fakeTransport struct {
	header headerCarrier
}

func (t *fakeTransport) Kind() transport.Kind { return transport.KindHTTP }
func (t *fakeTransport) Endpoint() string { return "http://127.0.0.1:8000" }
func (t *fakeTransport) Operation() string { return controllers.OperationRecordView }
func (t *fakeTransport) RequestHeader() transport.Header { return t.header }
func (t *fakeTransport) ReplyHeader() transport.Header { return headerCarrier{} }

func TestBaseHandlerResolveCallerFromKratosMetadata(t *testing.T) {
	userID := uuid.New()
	ctx := kmetadata.NewServerContext(context.Background(), kmetadata.New(map[string][]string{
		"x-md-global-user-id": {userID.String()},
		"x-md-request-id":     {"req-456"},
	}))

	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{})
	caller := handler.ResolveCaller(ctx)

	assert.Equal(t, userID, caller.UserID)
	assert.Equal(t, "req-456", caller.RequestID)
	assert.False(t, caller.Malformed)
	assert.False(t, caller.Anonymous())
}

func TestBaseHandlerCallerFallsBackToRequestHeader(t *testing.T) {
	userID := uuid.New()
	header := headerCarrier{}
	header.Set("X-Md-Global-User-Id", userID.String())
	ctx := transport.NewServerContext(context.Background(), &fakeTransport{header: header})

	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{})
	ctx, caller := handler.Caller(ctx)

	assert.Equal(t, userID, caller)
	stored, ok := metadata.CallerFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, stored.UserID)
	assert.Equal(t, userID, metadata.UserIDFrom(ctx))
}

func TestBaseHandlerCallerAnonymous(t *testing.T) {
	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{})

	_, caller := handler.Caller(context.Background())
	assert.Equal(t, uuid.Nil, caller)

	ctx := kmetadata.NewServerContext(context.Background(), kmetadata.New(map[string][]string{
		"x-md-global-user-id": {"not-a-uuid"},
	}))
	ctx, caller = handler.Caller(ctx)
	assert.Equal(t, uuid.Nil, caller)
	stored, ok := metadata.CallerFrom(ctx)
	require.True(t, ok)
	assert.True(t, stored.Malformed)
	assert.True(t, stored.Anonymous())
}

func TestBaseHandlerWithTimeout(t *testing.T) {
	handler := controllers.NewBaseHandler(controllers.HandlerTimeouts{Command: 200 * time.Millisecond})
	ctx, cancel := handler.WithTimeout(context.Background(), controllers.HandlerTypeCommand)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "expected deadline to be set")
	remaining := time.Until(deadline)
	assert.True(t, remaining > 150*time.Millisecond && remaining <= 200*time.Millisecond, "timeout near 200ms, got %v", remaining)

	// Query 未配置时沿用 Default，Default 又取自 Command
	qctx, qcancel := handler.WithTimeout(context.Background(), controllers.HandlerTypeQuery)
	defer qcancel()
	_, ok = qctx.Deadline()
	assert.True(t, ok)
}

func TestBaseHandlerZeroValueHasNoDeadline(t *testing.T) {
	var handler controllers.BaseHandler
	ctx, cancel := handler.WithTimeout(context.Background(), controllers.HandlerTypeDefault)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

func TestProvideHandlerTimeouts(t *testing.T) {
	got := controllers.ProvideHandlerTimeouts(&loader.Handlers{
		DefaultTimeout: loader.Duration(4 * time.Second),
		QueryTimeout:   loader.Duration(2 * time.Second),
	})
	assert.Equal(t, 4*time.Second, got.Default)
	assert.Equal(t, time.Duration(0), got.Command)
	assert.Equal(t, 2*time.Second, got.Query)

	assert.Equal(t, controllers.HandlerTimeouts{}, controllers.ProvideHandlerTimeouts(nil))
}
