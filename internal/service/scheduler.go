package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ShowSync/internal/config"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler 按 sync.cron 周期执行：抽取入库，然后同步所有聊天
type Scheduler struct {
	cfg       config.SyncConfig
	sync      *SyncService
	reconcile *ReconcileService
	logger    *logrus.Logger
	cron      *cron.Cron
	running   atomic.Bool
}

func NewScheduler(cfg config.SyncConfig, syncSvc *SyncService, reconcileSvc *ReconcileService, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		sync:      syncSvc,
		reconcile: reconcileSvc,
		logger:    logger,
	}
}

// RunCycle 执行一轮，任何错误只记录日志；上一轮未结束时直接跳过
func (s *Scheduler) RunCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("上一轮同步仍在进行，跳过本轮")
		return
	}
	defer s.running.Store(false)

	cycleID := uuid.NewString()
	logger := s.logger.WithField("cycle_id", cycleID)
	started := time.Now()
	logger.Info("开始同步周期")

	if _, err := s.sync.Run(ctx); err != nil {
		logger.WithError(err).Error("抽取入库失败")
	}
	if err := s.reconcile.ReconcileAll(ctx, false); err != nil {
		logger.WithError(err).Error("聊天同步存在失败")
	}
	logger.WithField("elapsed", time.Since(started).String()).Info("同步周期结束")
}

// Start 注册定时任务并启动；sync.run_at_startup 为 true 时立即执行第一轮
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(s.logger)),
		cron.SkipIfStillRunning(cron.PrintfLogger(s.logger)),
	))
	if _, err := s.cron.AddFunc(s.cfg.Cron, func() { s.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("注册定时任务失败(%s): %w", s.cfg.Cron, err)
	}
	s.cron.Start()
	s.logger.WithField("cron", s.cfg.Cron).Info("定时任务已启动")

	if s.cfg.RunAtStartup {
		go s.RunCycle(ctx)
	} else {
		s.logger.Info("跳过启动时同步")
	}
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("定时任务已停止")
}
