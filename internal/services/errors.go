package services

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/bionicotaku/lingo-services-reading/internal/repositories"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// 对外错误原因（与 HTTP 状态码对应关系见各构造函数）。
const (
	ReasonChapterNotFound  = "READING_CHAPTER_NOT_FOUND"
	ReasonSeriesNotFound   = "READING_SERIES_NOT_FOUND"
	ReasonUserNotFound     = "READING_USER_NOT_FOUND"
	ReasonInvalidArgument  = "READING_INVALID_ARGUMENT"
	ReasonUnauthenticated  = "READING_UNAUTHENTICATED"
	ReasonTimeout          = "READING_TIMEOUT"
	ReasonStoreUnavailable = "READING_STORE_UNAVAILABLE"
	ReasonInternal         = "READING_INTERNAL"
)

// 预定义错误，调用方可用 errors.Is 比较 reason。
var (
	ErrChapterNotFound = errors.NotFound(ReasonChapterNotFound, "chapter not found")
	ErrSeriesNotFound  = errors.NotFound(ReasonSeriesNotFound, "series not found")
	ErrUserNotFound    = errors.NotFound(ReasonUserNotFound, "user not found")
	ErrUnauthenticated = errors.Unauthorized(ReasonUnauthenticated, "caller identity required")
)

func invalidArgument(msg string) error {
	return errors.BadRequest(ReasonInvalidArgument, msg)
}

// mapStoreError 把仓储层错误转换为对外错误。
// NotFound 哨兵原样映射；超时映射 504；连接类错误映射为可重试的 503；其余为 500。
func mapStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	if se := new(errors.Error); stderrors.As(err, &se) {
		return se
	}
	switch {
	case stderrors.Is(err, repositories.ErrChapterNotFound):
		return ErrChapterNotFound
	case stderrors.Is(err, repositories.ErrSeriesNotFound):
		return ErrSeriesNotFound
	case stderrors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.GatewayTimeout(ReasonTimeout, op+" timeout").WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return errors.ClientClosed(ReasonTimeout, op+" canceled").WithCause(err)
	case isStoreUnavailable(err):
		return errors.ServiceUnavailable(ReasonStoreUnavailable, op+": store unavailable").WithCause(err)
	default:
		return errors.InternalServer(ReasonInternal, op+" failed").WithCause(err)
	}
}

func isStoreUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if stderrors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
