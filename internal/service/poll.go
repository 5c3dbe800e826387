package service

import (
	"context"
	"fmt"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	// MaxPollOptions 平台单个投票的选项上限
	MaxPollOptions = 10
	// MaxPollAnswerRunes 平台单个选项的长度上限
	MaxPollAnswerRunes = 55
)

// BuildPolls 未来场次按 10 个一组拆成多个投票；多于一组时标题带 "i/N"（N 为组数减一）
func BuildPolls(title string, screenings []model.Screening, now time.Time, loc *time.Location) []model.PollSpec {
	if loc == nil {
		loc = time.UTC
	}
	upcoming := model.Upcoming(screenings, now)
	if len(upcoming) == 0 {
		return nil
	}

	var chunks [][]model.Screening
	for start := 0; start < len(upcoming); start += MaxPollOptions {
		end := start + MaxPollOptions
		if end > len(upcoming) {
			end = len(upcoming)
		}
		chunks = append(chunks, upcoming[start:end])
	}

	polls := make([]model.PollSpec, 0, len(chunks))
	for i, chunk := range chunks {
		name := title
		if len(chunks) > 1 {
			name = fmt.Sprintf("%s %d/%d", title, i, len(chunks)-1)
		}
		options := make([]string, 0, len(chunk))
		for _, s := range chunk {
			opt := s.StartTime.In(loc).Format(timeLayout)
			if s.Location != "" {
				opt += " " + s.Location
			}
			options = append(options, truncateRunes(opt, MaxPollAnswerRunes))
		}
		polls = append(polls, model.PollSpec{
			Title:           name,
			Options:         options,
			MultipleAnswers: true,
			Anonymous:       false,
		})
	}
	return polls
}

// PollService 在讨论帖中发起出席投票
type PollService struct {
	platform interfaces.ChatPlatform
	topics   interfaces.TopicRepository
	loc      *time.Location
	logger   *logrus.Logger
	now      func() time.Time
}

func NewPollService(platform interfaces.ChatPlatform, topics interfaces.TopicRepository, loc *time.Location, logger *logrus.Logger) *PollService {
	return &PollService{platform: platform, topics: topics, loc: loc, logger: logger, now: time.Now}
}

// SendPolls 为讨论帖对应剧目的未来场次发起投票，返回已发出的投票 id。
// 中途失败时返回已发出的部分和错误
func (s *PollService) SendPolls(ctx context.Context, chatID, threadID string) ([]string, error) {
	topic, err := s.topics.GetTopic(ctx, chatID, threadID)
	if err != nil {
		return nil, fmt.Errorf("查询讨论帖%s失败: %w", threadID, err)
	}

	polls := BuildPolls(topic.Show.Name, topic.Show.Screenings, s.now(), s.loc)
	ids := make([]string, 0, len(polls))
	for _, p := range polls {
		id, err := s.platform.SendPoll(ctx, chatID, threadID, p)
		if err != nil {
			return ids, apperr.Platform("send_poll", threadID, err)
		}
		ids = append(ids, id)
	}
	s.logger.WithFields(logrus.Fields{
		"chat_id":   chatID,
		"thread_id": threadID,
		"polls":     len(ids),
	}).Info("投票已发送")
	return ids, nil
}
