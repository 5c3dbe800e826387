package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "ShowSync/internal/adapter/schauspielhaus"
	"ShowSync/internal/api"
	"ShowSync/internal/config"
	"ShowSync/internal/model"
	"ShowSync/internal/service"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const usage = `用法: showsync <command> [args]

  run-service                      定时同步并启动管理接口（默认）
  scrape-once [-reconcile]         抓取一轮并入库，-reconcile 时同步所有聊天
  reconcile [-force] [chat_id]     同步指定聊天，不指定时同步全部
  add-chat <chat_id>               订阅聊天
  send-polls <chat_id> <thread_id> 在讨论帖中发起场次投票
  list-shows [-all]                列出剧目，-all 时包含已结束的场次
  list-chats                       列出已订阅的聊天
`

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.Info("配置文件加载成功")

	cmd, args := "run-service", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "run-service":
		err = runService(ctx, cfg, logger)
	case "scrape-once":
		err = scrapeOnce(ctx, cfg, logger, args)
	case "reconcile":
		err = reconcile(ctx, cfg, logger, args)
	case "add-chat":
		err = addChat(ctx, cfg, logger, args)
	case "send-polls":
		err = sendPolls(ctx, cfg, logger, args)
	case "list-shows":
		err = listShows(ctx, cfg, logger, args)
	case "list-chats":
		err = listChats(ctx, cfg, logger)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.WithError(err).Errorf("%s 执行失败", cmd)
		os.Exit(1)
	}
}

func runService(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	a, err := newApp(ctx, cfg, logger, needs{source: true, platform: true})
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := service.NewScheduler(cfg.Sync, a.sync, a.reconcile, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	// 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := api.NewRouter(api.Handlers{
		Sync:  api.NewSyncHandler(a.sync, a.reconcile, a.runs, logger),
		Shows: api.NewShowHandler(a.shows, logger),
		Chats: api.NewChatHandler(a.chats, a.topics, a.reconcile, a.polls, logger),
	})
	logger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务失败: %w", err)
		}
	case <-ctx.Done():
		logger.Info("收到退出信号，正在关闭…")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("关闭HTTP服务失败")
	}
	return nil
}

func scrapeOnce(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string) error {
	fset := flag.NewFlagSet("scrape-once", flag.ContinueOnError)
	withReconcile := fset.Bool("reconcile", false, "抓取后同步所有聊天")
	if err := fset.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, needs{source: true, platform: *withReconcile})
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.sync.Run(ctx)
	if err != nil {
		return err
	}
	printRun(run)
	if *withReconcile {
		return a.reconcile.ReconcileAll(ctx, false)
	}
	return nil
}

func reconcile(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string) error {
	fset := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	force := fset.Bool("force", false, "无论内容是否变化都重发置顶消息")
	if err := fset.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, needs{platform: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if fset.NArg() == 0 {
		return a.reconcile.ReconcileAll(ctx, *force)
	}
	return a.reconcile.ReconcileChat(ctx, fset.Arg(0), *force)
}

func addChat(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string) error {
	if len(args) != 1 {
		return errors.New("用法: add-chat <chat_id>")
	}
	a, err := newApp(ctx, cfg, logger, needs{platform: true})
	if err != nil {
		return err
	}
	defer a.Close()

	chat, err := a.reconcile.AddChat(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%s)\n", color.GreenString("已订阅"), chat.DisplayName, chat.ID)
	return nil
}

func sendPolls(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string) error {
	if len(args) != 2 {
		return errors.New("用法: send-polls <chat_id> <thread_id>")
	}
	a, err := newApp(ctx, cfg, logger, needs{platform: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.polls.SendPolls(ctx, args[0], args[1])
	fmt.Printf("已发送 %d 个投票\n", len(ids))
	return err
}

func listShows(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string) error {
	fset := flag.NewFlagSet("list-shows", flag.ContinueOnError)
	all := fset.Bool("all", false, "包含已结束的场次")
	if err := fset.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	shows, err := a.shows.ListShows(ctx)
	if err != nil {
		return err
	}
	loc, _ := cfg.Source.Location()

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	now := time.Now()
	for _, s := range shows {
		fmt.Printf("%s %s %s\n", faint(fmt.Sprintf("#%d", s.ID)), cyan(s.Name), faint(s.URL))
		screenings := s.Screenings
		if !*all {
			screenings = model.Upcoming(screenings, now)
		}
		for _, sc := range screenings {
			status := faint(string(sc.TicketStatus))
			switch sc.TicketStatus {
			case model.TicketAvailable:
				status = green("tickets")
			case model.TicketSoldOut:
				status = red("ausverkauft")
			}
			fmt.Printf("    %s  %-20s %s\n", sc.StartTime.In(loc).Format("02.01.2006 15:04"), sc.Location, status)
		}
	}
	fmt.Printf("\n共 %d 个剧目\n", len(shows))
	return nil
}

func listChats(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	a, err := newApp(ctx, cfg, logger, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	chats, err := a.chats.ListChats(ctx)
	if err != nil {
		return err
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	for _, c := range chats {
		topics, err := a.topics.ListChatTopics(ctx, c.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s  %d 个讨论帖\n", yellow(c.ID), c.DisplayName, len(topics))
	}
	return nil
}

func printRun(run *model.SyncRun) {
	fmt.Printf("运行 %s: 发现 %d 个剧目，入库 %d 个\n", run.ID, run.ShowsSeen, run.ShowsStored)
	if len(run.Failures) == 0 {
		return
	}
	red := color.New(color.FgRed).SprintFunc()
	fmt.Println(red(fmt.Sprintf("失败 %d 个:", len(run.Failures))))
	for _, f := range run.Failures {
		fmt.Printf("  [%s] %s: %s\n", f.Kind, f.URL, strings.TrimSpace(f.Message))
	}
}
