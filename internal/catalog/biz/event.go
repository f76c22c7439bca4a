package biz

import "time"

// EventType 文件事件类型
type EventType string

const (
	EventUploaded        EventType = "uploaded"
	EventCategoryChanged EventType = "category_changed"
	EventStatusChanged   EventType = "status_changed"
	EventDeleted         EventType = "deleted"
)

// Event 文件事件；Previous 为变更前的分类或状态
type Event struct {
	Type     EventType
	File     *FileRecord
	Previous string
	Actor    string
	At       time.Time
}
