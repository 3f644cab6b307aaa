// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"time"

	"github.com/google/uuid"
)

// SeriesStatus 表示连载的发布状态。
type SeriesStatus string

// 连载状态常量定义
const (
	SeriesStatusDraft     SeriesStatus = "draft"     // 草稿，未公开
	SeriesStatusOngoing   SeriesStatus = "ongoing"   // 连载中（计入 active series）
	SeriesStatusCompleted SeriesStatus = "completed" // 已完结
	SeriesStatusHiatus    SeriesStatus = "hiatus"    // 休刊
	SeriesStatusCancelled SeriesStatus = "cancelled" // 已取消
)

// Series 表示 reading.series 表中账本关心的字段。
type Series struct {
	SeriesID  uuid.UUID    `db:"series_id"`
	CreatorID uuid.UUID    `db:"creator_id"`
	Title     string       `db:"title"`
	Status    SeriesStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
}

// Chapter 表示 reading.chapters 表中账本关心的字段。
type Chapter struct {
	ChapterID uuid.UUID `db:"chapter_id"`
	SeriesID  uuid.UUID `db:"series_id"`
	Number    int32     `db:"number"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
}

// ChapterRef 是章节与其所属连载、作者的最小引用，供计数器联动使用。
type ChapterRef struct {
	ChapterID uuid.UUID
	SeriesID  uuid.UUID
	CreatorID uuid.UUID
}
