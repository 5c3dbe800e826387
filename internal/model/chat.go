package model

import "time"

// Chat 订阅的群组/频道，chat id 为平台侧 id
type Chat struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatKind 平台上报的聊天类型
type ChatKind int

const (
	ChatKindUnknown ChatKind = iota
	ChatKindForum            // 论坛频道：每个剧目一个帖子，可挂标签图标
	ChatKindText             // 普通文字频道：每个剧目一个公开子区
	ChatKindDirect           // 私聊，不支持建帖
)

func (k ChatKind) String() string {
	switch k {
	case ChatKindForum:
		return "forum"
	case ChatKindText:
		return "text"
	case ChatKindDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// Topic 某个聊天中某剧目对应的讨论帖状态。(chat_id, thread_id) 唯一，(chat_id, show_id) 唯一
type Topic struct {
	ChatID            string    `json:"chat_id"`
	ThreadID          string    `json:"thread_id"`
	ShowID            uint64    `json:"show_id"`
	LastUpdated       time.Time `json:"last_updated"`
	PinnedMessageID   string    `json:"pinned_message_id,omitempty"`
	PinnedMessageHash string    `json:"pinned_message_hash,omitempty"` // 为空表示从未成功发送
}

// ShowTopic 剧目与其在某聊天中的讨论帖（可能尚未创建）
type ShowTopic struct {
	ShowWithScreenings
	Topic *Topic `json:"topic,omitempty"`
}

// TopicDetail 已存在的讨论帖及其剧目数据
type TopicDetail struct {
	Topic
	Show ShowWithScreenings `json:"show"`
}
