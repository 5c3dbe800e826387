package main

import (
	"context"
	"fmt"

	"ShowSync/internal/adapter"
	"ShowSync/internal/adapter/discord"
	"ShowSync/internal/cache"
	"ShowSync/internal/config"
	"ShowSync/internal/database"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/repository"
	"ShowSync/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app 各子命令共用的组件
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB

	shows  *repository.ShowRepository
	topics *repository.TopicRepository
	chats  *repository.ChatRepository
	runs   *repository.RunRepository

	sync      *service.SyncService
	reconcile *service.ReconcileService
	polls     *service.PollService
}

type needs struct {
	source   bool
	platform bool
}

// newApp 连接数据库并按需初始化抓取来源与聊天平台
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, n needs) (*app, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库表结构迁移失败: %w", err)
	}
	logger.Info("数据库表结构检查完成（不存在则已创建）")

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		shows:  repository.NewShowRepository(db),
		topics: repository.NewTopicRepository(db),
		chats:  repository.NewChatRepository(db),
		runs:   repository.NewRunRepository(db),
	}

	loc, err := cfg.Source.Location()
	if err != nil {
		return nil, err
	}

	if n.source {
		docs := cache.NewRedisCache(ctx, cfg.Cache, logger)
		src, err := adapter.NewSource(&cfg.Source, docs, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化来源%s失败: %w", cfg.Source.Name, err)
		}
		a.sync = service.NewSyncService(src, a.shows, a.runs, logger)
	}

	if n.platform {
		var platform interfaces.ChatPlatform
		platform, err = discord.New(cfg.Discord, logger)
		if err != nil {
			return nil, err
		}
		renderer := service.NewRenderer(cfg.Source.BaseURL, loc)
		a.reconcile = service.NewReconcileService(platform, a.shows, a.topics, a.chats, renderer, logger)
		a.polls = service.NewPollService(platform, a.topics, loc, logger)
	}
	return a, nil
}

func (a *app) Close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		a.logger.WithError(err).Warn("关闭数据库连接失败")
	}
}
