package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ShowFailure 单个剧目在某聊天中的同步失败
type ShowFailure struct {
	ShowID uint64
	Name   string
	Err    error
}

func (f *ShowFailure) Error() string {
	return fmt.Sprintf("剧目 %d (%s): %v", f.ShowID, f.Name, f.Err)
}

func (f *ShowFailure) Unwrap() error { return f.Err }

// ReconcileError 一个聊天内所有失败剧目的汇总，已生效的平台写入不回滚
type ReconcileError struct {
	ChatID   string
	Failures []error
}

func (e *ReconcileError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("聊天 %s 有 %d 个剧目同步失败: %s", e.ChatID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *ReconcileError) Unwrap() []error { return e.Failures }

// ReconcileService 让每个聊天中每个剧目恰好对应一个讨论帖，并保持置顶消息最新
type ReconcileService struct {
	platform interfaces.ChatPlatform
	shows    interfaces.ShowRepository
	topics   interfaces.TopicRepository
	chats    interfaces.ChatRepository
	renderer *Renderer
	logger   *logrus.Logger
	now      func() time.Time
	// 调度器和管理接口共用，同一时刻只有一个同步在跑
	mu sync.Mutex
}

func NewReconcileService(
	platform interfaces.ChatPlatform,
	shows interfaces.ShowRepository,
	topics interfaces.TopicRepository,
	chats interfaces.ChatRepository,
	renderer *Renderer,
	logger *logrus.Logger,
) *ReconcileService {
	return &ReconcileService{
		platform: platform,
		shows:    shows,
		topics:   topics,
		chats:    chats,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// AddChat 订阅一个聊天，显示名称取自平台；只接受能建帖的聊天类型
func (s *ReconcileService) AddChat(ctx context.Context, chatID string) (model.Chat, error) {
	info, err := s.platform.ResolveChat(ctx, chatID)
	if err != nil {
		return model.Chat{}, apperr.Platform("resolve_chat", chatID, err)
	}
	if info.Kind != model.ChatKindForum && info.Kind != model.ChatKindText {
		return model.Chat{}, apperr.Platform("resolve_chat", chatID, fmt.Errorf("不支持 %s 类型的聊天", info.Kind))
	}
	chat := model.Chat{ID: chatID, DisplayName: info.DisplayName, CreatedAt: s.now()}
	if err := s.chats.PutChat(ctx, chat); err != nil {
		return model.Chat{}, err
	}
	s.logger.WithFields(logrus.Fields{"chat_id": chatID, "name": info.DisplayName, "kind": info.Kind.String()}).Info("已订阅聊天")
	return chat, nil
}

// ReconcileAll 依次同步所有已订阅的聊天，单个聊天失败不影响其他聊天
func (s *ReconcileService) ReconcileAll(ctx context.Context, force bool) error {
	chats, err := s.chats.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("查询聊天列表失败: %w", err)
	}
	var errs []error
	for _, c := range chats {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := s.ReconcileChat(ctx, c.ID, force); err != nil {
			s.logger.WithError(err).WithField("chat_id", c.ID).Error("聊天同步失败")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReconcileChat 同步单个聊天。force 为 true 时无论哈希是否变化都重发置顶消息
func (s *ReconcileService) ReconcileChat(ctx context.Context, chatID string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.WithField("chat_id", chatID)

	info, err := s.platform.ResolveChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, interfaces.ErrChatNotFound) {
			logger.Warn("聊天不存在或无权限，跳过")
			return nil
		}
		return apperr.Platform("resolve_chat", chatID, err)
	}

	var icons []string
	switch info.Kind {
	case model.ChatKindForum:
		icons, err = s.platform.ListIconOptions(ctx, chatID)
		if err != nil {
			logger.WithError(err).Warn("获取帖子标签失败，新帖不带图标")
			icons = nil
		}
	case model.ChatKindText:
		// 子区没有图标
	case model.ChatKindDirect, model.ChatKindUnknown:
		return apperr.Platform("resolve_chat", chatID, fmt.Errorf("不支持在 %s 类型的聊天中建帖", info.Kind))
	default:
		return apperr.Platform("resolve_chat", chatID, fmt.Errorf("未知聊天类型 %d", int(info.Kind)))
	}

	items, err := s.shows.ListShowsWithTopic(ctx, chatID)
	if err != nil {
		return fmt.Errorf("查询聊天%s的剧目失败: %w", chatID, err)
	}

	now := s.now()
	var failures []error
	var created, refreshed int
	for _, item := range items {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		res, err := s.reconcileShow(ctx, info, item, icons, now, force)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{"show_id": item.ID, "url": item.URL}).Warn("剧目同步失败，继续下一个")
			failures = append(failures, &ShowFailure{ShowID: item.ID, Name: item.Name, Err: err})
			continue
		}
		if res.created {
			created++
		}
		if res.refreshed {
			refreshed++
		}
	}
	logger.WithFields(logrus.Fields{
		"shows":     len(items),
		"created":   created,
		"refreshed": refreshed,
		"failed":    len(failures),
	}).Info("聊天同步完成")

	if len(failures) > 0 {
		return &ReconcileError{ChatID: chatID, Failures: failures}
	}
	return nil
}

type showResult struct {
	created   bool
	refreshed bool
}

func (s *ReconcileService) reconcileShow(ctx context.Context, chat interfaces.ChatInfo, item model.ShowTopic, icons []string, now time.Time, force bool) (showResult, error) {
	var res showResult

	topic := item.Topic
	if topic == nil {
		threadID, err := s.platform.CreateThread(ctx, chat, item.Name, pickIcon(icons, item.ID))
		if err != nil {
			return res, apperr.Platform("create_thread", item.URL, err)
		}
		res.created = true
		topic = &model.Topic{ChatID: chat.ID, ThreadID: threadID, ShowID: item.ID, LastUpdated: now}
		// 先记下帖子，后续发送失败时下轮不会重复建帖
		if err := s.topics.UpsertTopic(ctx, *topic); err != nil {
			return res, err
		}
	}

	body := s.renderer.Body(item.ShowWithScreenings, now)
	hash := BodyHash(body)

	if force || topic.PinnedMessageHash == "" || topic.PinnedMessageHash != hash {
		if topic.PinnedMessageID != "" {
			err := s.platform.DeleteMessage(ctx, chat.ID, topic.ThreadID, topic.PinnedMessageID)
			if err != nil && !errors.Is(err, interfaces.ErrMessageNotFound) {
				return res, apperr.Platform("delete_message", topic.ThreadID, err)
			}
		}

		msgID, err := s.platform.SendMessage(ctx, chat.ID, topic.ThreadID, body, interfaces.FormatMarkdown)
		if err != nil {
			// 旧消息可能已删除，清空记录让下一轮重发
			cleared := *topic
			cleared.PinnedMessageID, cleared.PinnedMessageHash, cleared.LastUpdated = "", "", now
			if uerr := s.topics.UpsertTopic(ctx, cleared); uerr != nil {
				s.logger.WithError(uerr).WithField("thread_id", topic.ThreadID).Warn("清空置顶记录失败")
			}
			return res, apperr.Platform("send_message", topic.ThreadID, err)
		}
		if err := s.platform.PinMessage(ctx, topic.ThreadID, msgID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{"thread_id": topic.ThreadID, "message_id": msgID}).Warn("置顶消息失败")
		}
		topic.PinnedMessageID = msgID
		topic.PinnedMessageHash = hash
		res.refreshed = true
	}

	topic.LastUpdated = now
	if err := s.topics.UpsertTopic(ctx, *topic); err != nil {
		return res, err
	}
	return res, nil
}

// pickIcon 按剧目 id 在可选图标中确定性地选一个
func pickIcon(icons []string, showID uint64) string {
	if len(icons) == 0 {
		return ""
	}
	return icons[showID%uint64(len(icons))]
}
