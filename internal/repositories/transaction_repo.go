package repositories

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/repositories/mappers"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository 汇总金币流水。流水由支付侧追加，服务不暴露写接口。
type TransactionRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewTransactionRepository 构造流水仓储。
func NewTransactionRepository(db *pgxpool.Pool, logger log.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const insertTransactionSQL = `
INSERT INTO reading.transactions (transaction_id, user_id, creator_id, amount, kind, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`

// Insert 追加一条流水，供数据导入与集成测试播种。TransactionID 为空时自动生成。
func (r *TransactionRepository) Insert(ctx context.Context, sess txmanager.Session, txn po.Transaction) (*po.Transaction, error) {
	if txn.TransactionID == uuid.Nil {
		txn.TransactionID = uuid.New()
	}
	var createdAt pgtype.Timestamptz
	err := conn(r.db, sess).QueryRow(ctx, insertTransactionSQL,
		txn.TransactionID,
		txn.UserID,
		mappers.ToPgUUID(txn.CreatorID),
		txn.Amount,
		string(txn.Kind),
		mappers.ToPgTimestamptz(orNow(txn.CreatedAt)),
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	txn.CreatedAt = createdAt.Time.UTC()
	return &txn, nil
}

const sumUnlockEarningsSQL = `
SELECT COALESCE(SUM(amount), 0)::bigint
  FROM reading.transactions
 WHERE creator_id = $1 AND kind = 'unlock' AND amount > 0`

// SumUnlockEarnings 汇总作者通过章节解锁获得的金币。
func (r *TransactionRepository) SumUnlockEarnings(ctx context.Context, sess txmanager.Session, creatorID uuid.UUID) (int64, error) {
	var total int64
	if err := conn(r.db, sess).QueryRow(ctx, sumUnlockEarningsSQL, creatorID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum unlock earnings: %w", err)
	}
	return total, nil
}
