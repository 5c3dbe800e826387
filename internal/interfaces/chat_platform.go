package interfaces

import (
	"context"
	"errors"

	"ShowSync/internal/model"
)

var (
	// ErrMessageNotFound 消息已不存在（删除时视为成功）
	ErrMessageNotFound = errors.New("message not found")
	// ErrChatNotFound 聊天不存在或机器人已无权限（跳过该聊天）
	ErrChatNotFound = errors.New("chat not found")
)

// MessageFormat 消息正文格式
type MessageFormat int

const (
	FormatMarkdown MessageFormat = iota
	FormatPlain                  // 不渲染链接预览
)

// ChatInfo 平台侧聊天信息
type ChatInfo struct {
	ID          string
	DisplayName string
	Kind        model.ChatKind
}

// ChatPlatform 聊天平台能力接口
type ChatPlatform interface {
	ResolveChat(ctx context.Context, chatID string) (ChatInfo, error)
	ListIconOptions(ctx context.Context, chatID string) ([]string, error)
	CreateThread(ctx context.Context, chat ChatInfo, title, icon string) (threadID string, err error)
	SendMessage(ctx context.Context, chatID, threadID, body string, format MessageFormat) (messageID string, err error)
	PinMessage(ctx context.Context, threadID, messageID string) error
	DeleteMessage(ctx context.Context, chatID, threadID, messageID string) error
	SendPoll(ctx context.Context, chatID, threadID string, poll model.PollSpec) (pollID string, err error)
}
