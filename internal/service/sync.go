package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SyncService 抓取 → 规范化 → 入库
type SyncService struct {
	source interfaces.ShowSource
	shows  interfaces.ShowRepository
	runs   interfaces.RunRepository
	logger *logrus.Logger
	mu     sync.Mutex
}

func NewSyncService(source interfaces.ShowSource, shows interfaces.ShowRepository, runs interfaces.RunRepository, logger *logrus.Logger) *SyncService {
	return &SyncService{source: source, shows: shows, runs: runs, logger: logger}
}

// Run 执行一轮抽取入库。日历页失败时整轮失败；单个剧目抓取或入库失败只记录，不影响其他剧目。
// 网络请求全部在入库事务之外完成
func (s *SyncService) Run(ctx context.Context) (*model.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &model.SyncRun{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := s.logger.WithFields(logrus.Fields{"run_id": run.ID, "source": s.source.GetName()})
	if s.runs != nil {
		if err := s.runs.CreateRun(ctx, run); err != nil {
			logger.WithError(err).Warn("写入运行记录失败")
		}
	}

	// 1. 抓取
	records, err := s.source.FetchAll(ctx, func(url string, err error) {
		run.Failures = append(run.Failures, failureOf(url, err))
	})
	if err != nil {
		run.Failures = append(run.Failures, failureOf("index", err))
		s.finish(ctx, run, logger)
		return run, fmt.Errorf("%s抓取日历页失败: %w", s.source.GetName(), err)
	}
	run.ShowsSeen = len(records) + len(run.Failures)
	if len(records) == 0 {
		logger.Warn("未抓取到任何剧目")
	}

	// 2. 规范化 + 入库（按 url 排序，保证每轮顺序一致）
	urls := make([]string, 0, len(records))
	for u := range records {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	for _, u := range urls {
		show := Normalize(records[u])
		if _, err := s.shows.UpsertShowWithScreenings(ctx, show); err != nil {
			logger.WithError(err).WithField("url", u).Error("剧目入库失败，跳过")
			run.Failures = append(run.Failures, failureOf(u, err))
			continue
		}
		run.ShowsStored++
	}

	s.finish(ctx, run, logger)
	logger.WithFields(logrus.Fields{
		"seen":   run.ShowsSeen,
		"stored": run.ShowsStored,
		"failed": len(run.Failures),
	}).Info("同步完成")
	return run, nil
}

func (s *SyncService) finish(ctx context.Context, run *model.SyncRun, logger *logrus.Entry) {
	now := time.Now()
	run.FinishedAt = &now
	if s.runs == nil {
		return
	}
	if err := s.runs.FinishRun(ctx, run); err != nil {
		logger.WithError(err).Warn("更新运行记录失败")
	}
}

func failureOf(url string, err error) model.RunFailure {
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	return model.RunFailure{URL: url, Kind: kind, Message: err.Error()}
}
