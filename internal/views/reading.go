// Package views 负责将内部 VO 对象转换为 HTTP JSON 响应。
// 列表类响应统一包一层对象，空列表序列化为 [] 而不是 null。
package views

import (
	"time"

	"github.com/bionicotaku/lingo-services-reading/internal/models/vo"

	"github.com/google/uuid"
)

// ContinueReadingResponse 是 GET /v1/me/continue-reading 的响应。
type ContinueReadingResponse struct {
	UserID uuid.UUID                `json:"user_id"`
	Items  []vo.ContinueReadingItem `json:"items"`
}

// NewContinueReadingResponse 构造继续阅读响应。
func NewContinueReadingResponse(userID uuid.UUID, items []vo.ContinueReadingItem) *ContinueReadingResponse {
	if items == nil {
		items = []vo.ContinueReadingItem{}
	}
	return &ContinueReadingResponse{UserID: userID, Items: items}
}

// NewRankingResponse 规整榜单响应。
func NewRankingResponse(list *vo.RankingList) *vo.RankingList {
	if list == nil {
		return &vo.RankingList{Entries: []vo.RankedEntry{}}
	}
	if list.Entries == nil {
		list.Entries = []vo.RankedEntry{}
	}
	return list
}

// HealthResponse 是 /healthz 与 /readyz 的响应体。
type HealthResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewHealthResponse 根据探测结果构造健康检查响应。
func NewHealthResponse(err error, now time.Time) *HealthResponse {
	if err != nil {
		return &HealthResponse{Status: "unavailable", Error: err.Error(), CheckedAt: now.UTC()}
	}
	return &HealthResponse{Status: "ok", CheckedAt: now.UTC()}
}
