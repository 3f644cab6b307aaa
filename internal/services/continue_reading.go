package services

import (
	"context"

	"github.com/bionicotaku/lingo-services-reading/internal/models/po"
	"github.com/bionicotaku/lingo-services-reading/internal/models/vo"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
)

// 继续阅读列表的默认与最大条数。
const (
	DefaultContinueReadingLimit = 10
	MaxContinueReadingLimit     = 50

	// continueReadingMinScan 是回溯阅读记录的最小条数。
	continueReadingMinScan = 50
	// continueReadingScanFactor 控制回溯窗口：每部连载平均预留的记录条数。
	continueReadingScanFactor = 4
)

// NormalizeContinueReadingLimit 把调用方给出的 limit 归一化到 [1, MaxContinueReadingLimit]。
func NormalizeContinueReadingLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultContinueReadingLimit
	case limit > MaxContinueReadingLimit:
		return MaxContinueReadingLimit
	default:
		return limit
	}
}

// continueReadingScanSize 返回需要回溯的阅读记录条数。
func continueReadingScanSize(limit int) int {
	n := limit * continueReadingScanFactor
	if n < continueReadingMinScan {
		n = continueReadingMinScan
	}
	return n
}

// FoldContinueReading 把按时间倒序的阅读记录折叠为每部连载一项，保留最近的一条。
// 输出保持记录的时间顺序，最多 limit 项。
func FoldContinueReading(records []po.ActivityRecord, limit int) []vo.ContinueReadingItem {
	if limit <= 0 {
		return []vo.ContinueReadingItem{}
	}
	seen := make(map[uuid.UUID]struct{}, limit)
	items := make([]vo.ContinueReadingItem, 0, limit)
	for _, rec := range records {
		if _, ok := seen[rec.SeriesID]; ok {
			continue
		}
		seen[rec.SeriesID] = struct{}{}
		items = append(items, vo.ContinueReadingItem{
			SeriesID:        rec.SeriesID,
			ChapterID:       rec.ChapterID,
			ProgressPercent: rec.ProgressPercent,
			LastTouchedAt:   rec.TouchedAt,
		})
		if len(items) == limit {
			break
		}
	}
	return items
}

// ContinueReading 返回用户最近阅读的连载及其最后触达的章节。
//
// 只回溯 max(limit*4, 50) 条记录：若用户在回溯窗口内反复阅读少数几部连载，
// 结果可能少于 limit 项。
func (s *LedgerService) ContinueReading(ctx context.Context, userID uuid.UUID, limit int) ([]vo.ContinueReadingItem, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	limit = NormalizeContinueReadingLimit(limit)

	var records []po.ActivityRecord
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var repoErr error
		records, repoErr = s.activity.ListRecent(txCtx, sess, userID, continueReadingScanSize(limit))
		return repoErr
	})
	if err != nil {
		return nil, mapStoreError(err, "continue reading")
	}
	return FoldContinueReading(records, limit), nil
}
