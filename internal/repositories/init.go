// Package repositories 实现基于 pgx 的持久化访问，所有方法接受可选的 txmanager.Session。
package repositories

import "github.com/google/wire"

// ProviderSet 暴露 Repository 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewContentRepository,
	NewActivityRepository,
	NewMarksRepository,
	NewProfileRepository,
	NewEngagementCountersRepository,
	NewRankingRepository,
	NewTransactionRepository,
	NewRedisViewMarkRepository,
)
