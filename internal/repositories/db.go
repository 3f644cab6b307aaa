package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// 仓储层哨兵错误，由 Service 层映射为对外错误码。
var (
	ErrChapterNotFound = errors.New("chapter not found")
	ErrSeriesNotFound  = errors.New("series not found")
	ErrUserNotFound    = errors.New("user not found")
)

const uniqueViolationCode = "23505"

// dbtx 是 pgxpool.Pool 与 pgx.Tx 的公共查询接口。
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn 在存在事务会话时返回事务连接，否则退回连接池。
func conn(db *pgxpool.Pool, sess txmanager.Session) dbtx {
	if sess != nil {
		if tx := sess.Tx(); tx != nil {
			return tx
		}
	}
	return db
}

// isUniqueViolation 判断错误是否为唯一约束冲突。
// 幂等写入遇到冲突时视为"已记录"，不向调用方暴露。
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
