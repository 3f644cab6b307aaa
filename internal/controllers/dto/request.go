// Package dto 提供控制器层的请求解析与服务层输入转换工具。
package dto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bionicotaku/lingo-services-reading/internal/services"

	"github.com/google/uuid"
)

// ProgressRequest 是 POST /v1/chapters/{chapter_id}/progress 的请求体。
type ProgressRequest struct {
	SeriesID string `json:"series_id"`
	Percent  *int   `json:"percent"`
}

// RatingRequest 是 PUT /v1/series/{series_id}/rating 的请求体。
type RatingRequest struct {
	Score int `json:"score"`
}

// ParseID 解析路径或请求体中的 UUID 字段。
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid %s: must not be the nil uuid", field)
	}
	return id, nil
}

// ParseLimit 解析 ?limit= 查询参数，空串返回 0 交由服务层取默认值。
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: %w", err)
	}
	if limit < 0 {
		return 0, fmt.Errorf("invalid limit: must be non-negative")
	}
	return limit, nil
}

// ToRecordProgressInput 将进度请求映射为服务层输入。percent 的越界处理留给服务层。
func ToRecordProgressInput(userID uuid.UUID, rawChapterID string, req ProgressRequest) (services.RecordProgressInput, error) {
	chapterID, err := ParseID("chapter_id", rawChapterID)
	if err != nil {
		return services.RecordProgressInput{}, err
	}
	seriesID, err := ParseID("series_id", req.SeriesID)
	if err != nil {
		return services.RecordProgressInput{}, err
	}
	if req.Percent == nil {
		return services.RecordProgressInput{}, fmt.Errorf("percent is required")
	}
	return services.RecordProgressInput{
		UserID:    userID,
		SeriesID:  seriesID,
		ChapterID: chapterID,
		Percent:   *req.Percent,
	}, nil
}
