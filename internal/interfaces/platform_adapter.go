package interfaces

import (
	"context"
	"errors"

	"ShowSync/internal/config"
	"ShowSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrNotFound 按键查询无记录
var ErrNotFound = errors.New("record not found")

// ItemErrorFunc 单个条目抽取失败时的回调，可为 nil
type ItemErrorFunc func(url string, err error)

// ShowSource 剧目来源站点必须实现的接口
type ShowSource interface {
	// 来源名称
	GetName() string
	// 日历页中的剧目链接（已去重）
	FetchIndex(ctx context.Context) ([]string, error)
	// 单个剧目详情
	FetchItem(ctx context.Context, url string) (*model.RawItemRecord, error)
	// 失败条目跳过，只有日历页失败才返回错误
	FetchAll(ctx context.Context, onItemError ItemErrorFunc) (map[string]*model.RawItemRecord, error)
}

// SourceFactory 来源适配器工厂函数签名
type SourceFactory func(cfg *config.SourceConfig, cache DocumentCache, logger *logrus.Logger) (ShowSource, error)

// DocumentCache 日历文件缓存
type DocumentCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ShowRepository 剧目与场次存取
type ShowRepository interface {
	UpsertShowWithScreenings(ctx context.Context, show model.ShowWithScreenings) (model.ShowWithScreenings, error)
	ListShows(ctx context.Context) ([]model.ShowWithScreenings, error)
	GetShow(ctx context.Context, id uint64) (model.ShowWithScreenings, error)
	ListShowsWithTopic(ctx context.Context, chatID string) ([]model.ShowTopic, error)
}

// TopicRepository 讨论帖状态存取
type TopicRepository interface {
	ListChatTopics(ctx context.Context, chatID string) ([]model.TopicDetail, error)
	GetTopic(ctx context.Context, chatID, threadID string) (model.TopicDetail, error)
	UpsertTopic(ctx context.Context, topic model.Topic) error
}

// ChatRepository 订阅聊天存取
type ChatRepository interface {
	ListChats(ctx context.Context) ([]model.Chat, error)
	GetChat(ctx context.Context, id string) (model.Chat, error)
	PutChat(ctx context.Context, chat model.Chat) error
}

// RunRepository 同步运行记录
type RunRepository interface {
	CreateRun(ctx context.Context, run *model.SyncRun) error
	FinishRun(ctx context.Context, run *model.SyncRun) error
	ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
}
