package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"ShowSync/internal/config"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	maxThreadNameRunes   = 100
	maxPollQuestionRunes = 300
	maxPollDurationHrs   = 768
	defaultArchive       = 10080
	defaultPollHrs       = 168
)

// session 用到的 discordgo.Session 方法
type session interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ForumThreadStartComplex(channelID string, threadData *discordgo.ThreadStart, messageData *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ThreadStartComplex(channelID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Platform 基于 Discord REST 接口的聊天平台实现，只发请求不连网关
type Platform struct {
	s       session
	archive int
	pollHrs int
	logger  *logrus.Logger
}

var _ interfaces.ChatPlatform = (*Platform)(nil)

// New 使用 Bot Token 创建
func New(cfg config.DiscordConfig, logger *logrus.Logger) (*Platform, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord.token 未配置")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("创建 Discord 会话失败: %w", err)
	}
	return newPlatform(s, cfg, logger), nil
}

func newPlatform(s session, cfg config.DiscordConfig, logger *logrus.Logger) *Platform {
	p := &Platform{s: s, archive: cfg.ArchiveDuration, pollHrs: cfg.PollDurationHrs, logger: logger}
	if p.archive <= 0 {
		p.archive = defaultArchive
	}
	if p.pollHrs <= 0 {
		p.pollHrs = defaultPollHrs
	}
	if p.pollHrs > maxPollDurationHrs {
		p.pollHrs = maxPollDurationHrs
	}
	return p
}

func (p *Platform) ResolveChat(ctx context.Context, chatID string) (interfaces.ChatInfo, error) {
	ch, err := p.s.Channel(chatID, discordgo.WithContext(ctx))
	if err != nil {
		return interfaces.ChatInfo{}, classify(err, interfaces.ErrChatNotFound,
			discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess)
	}
	return interfaces.ChatInfo{ID: ch.ID, DisplayName: ch.Name, Kind: kindOf(ch.Type)}, nil
}

// ListIconOptions 论坛频道的可用标签 id；普通频道没有标签
func (p *Platform) ListIconOptions(ctx context.Context, chatID string) ([]string, error) {
	ch, err := p.s.Channel(chatID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err, interfaces.ErrChatNotFound,
			discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess)
	}
	out := make([]string, 0, len(ch.AvailableTags))
	for _, tag := range ch.AvailableTags {
		if tag.Moderated {
			continue
		}
		out = append(out, tag.ID)
	}
	return out, nil
}

// CreateThread 论坛频道发帖（首条消息为标题）；文字频道开公开子区
func (p *Platform) CreateThread(ctx context.Context, chat interfaces.ChatInfo, title, icon string) (string, error) {
	name := truncate(title, maxThreadNameRunes)
	switch chat.Kind {
	case model.ChatKindForum:
		data := &discordgo.ThreadStart{Name: name, AutoArchiveDuration: p.archive}
		if icon != "" {
			data.AppliedTags = []string{icon}
		}
		th, err := p.s.ForumThreadStartComplex(chat.ID, data, &discordgo.MessageSend{Content: title}, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("发帖失败: %w", err)
		}
		return th.ID, nil
	case model.ChatKindText:
		th, err := p.s.ThreadStartComplex(chat.ID, &discordgo.ThreadStart{
			Name:                name,
			AutoArchiveDuration: p.archive,
			Type:                discordgo.ChannelTypeGuildPublicThread,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("创建子区失败: %w", err)
		}
		return th.ID, nil
	default:
		return "", fmt.Errorf("%s 类型的聊天不能建帖", chat.Kind)
	}
}

// SendMessage 帖子在 Discord 中本身就是频道，消息直接发到 threadID
func (p *Platform) SendMessage(ctx context.Context, chatID, threadID, body string, format interfaces.MessageFormat) (string, error) {
	data := &discordgo.MessageSend{Content: body}
	if format == interfaces.FormatPlain {
		data.Flags = discordgo.MessageFlagsSuppressEmbeds
	}
	msg, err := p.s.ChannelMessageSendComplex(threadID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err, interfaces.ErrChatNotFound, discordgo.ErrCodeUnknownChannel)
	}
	return msg.ID, nil
}

func (p *Platform) PinMessage(ctx context.Context, threadID, messageID string) error {
	if err := p.s.ChannelMessagePin(threadID, messageID, discordgo.WithContext(ctx)); err != nil {
		return classify(err, interfaces.ErrMessageNotFound, discordgo.ErrCodeUnknownMessage)
	}
	return nil
}

func (p *Platform) DeleteMessage(ctx context.Context, chatID, threadID, messageID string) error {
	if err := p.s.ChannelMessageDelete(threadID, messageID, discordgo.WithContext(ctx)); err != nil {
		return classify(err, interfaces.ErrMessageNotFound,
			discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel)
	}
	return nil
}

// SendPoll 返回投票所在消息的 id。Discord 投票总是公开投票人
func (p *Platform) SendPoll(ctx context.Context, chatID, threadID string, poll model.PollSpec) (string, error) {
	if len(poll.Options) == 0 {
		return "", errors.New("投票没有选项")
	}
	if poll.Anonymous {
		p.logger.WithField("thread_id", threadID).Debug("Discord 不支持匿名投票，按公开投票发送")
	}
	answers := make([]discordgo.PollAnswer, 0, len(poll.Options))
	for _, opt := range poll.Options {
		answers = append(answers, discordgo.PollAnswer{Media: &discordgo.PollMedia{Text: opt}})
	}
	msg, err := p.s.ChannelMessageSendComplex(threadID, &discordgo.MessageSend{
		Poll: &discordgo.Poll{
			Question:         discordgo.PollMedia{Text: truncate(poll.Title, maxPollQuestionRunes)},
			Answers:          answers,
			AllowMultiselect: poll.MultipleAnswers,
			Duration:         p.pollHrs,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err, interfaces.ErrChatNotFound, discordgo.ErrCodeUnknownChannel)
	}
	return msg.ID, nil
}

func kindOf(t discordgo.ChannelType) model.ChatKind {
	switch t {
	case discordgo.ChannelTypeGuildForum:
		return model.ChatKindForum
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return model.ChatKindText
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return model.ChatKindDirect
	default:
		return model.ChatKindUnknown
	}
}

// classify 把 404 或指定的 Discord 错误码映射为 sentinel，原始错误保留在链上
func classify(err error, sentinel error, codes ...int) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		for _, c := range codes {
			if restErr.Message.Code == c {
				return fmt.Errorf("%w: %w", sentinel, err)
			}
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
