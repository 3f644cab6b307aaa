package po

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind 表示金币流水类别。
type TransactionKind string

// 流水类别
const (
	TransactionUnlock   TransactionKind = "unlock"
	TransactionPurchase TransactionKind = "purchase"
	TransactionRefund   TransactionKind = "refund"
	TransactionTip      TransactionKind = "tip"
)

// Transaction 表示 reading.transactions 的一行，只追加。
type Transaction struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	CreatorID     *uuid.UUID
	Amount        int64
	Kind          TransactionKind
	CreatedAt     time.Time
}
