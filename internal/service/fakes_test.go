package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"
	"ShowSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:svc_"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type repos struct {
	shows  *repository.ShowRepository
	topics *repository.TopicRepository
	chats  *repository.ChatRepository
	runs   *repository.RunRepository
}

func newRepos(t *testing.T) repos {
	db := newTestDB(t)
	return repos{
		shows:  repository.NewShowRepository(db),
		topics: repository.NewTopicRepository(db),
		chats:  repository.NewChatRepository(db),
		runs:   repository.NewRunRepository(db),
	}
}

// fakePlatform 记录所有调用的内存聊天平台
type fakePlatform struct {
	mu sync.Mutex

	kind    model.ChatKind
	chatErr error
	icons   []string
	iconErr error
	failOn  map[string]bool // 按帖子标题让 CreateThread 失败
	sendErr error

	seq      int
	threads  map[string]string // thread id → 标题
	icon     map[string]string // thread id → 图标
	messages map[string]string // message id → 正文
	pinned   []string
	polls    []model.PollSpec

	creates, sends, deletes int
}

func newFakePlatform(kind model.ChatKind) *fakePlatform {
	return &fakePlatform{
		kind:     kind,
		failOn:   map[string]bool{},
		threads:  map[string]string{},
		icon:     map[string]string{},
		messages: map[string]string{},
	}
}

func (p *fakePlatform) nextID(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s-%d", prefix, p.seq)
}

func (p *fakePlatform) ResolveChat(_ context.Context, chatID string) (interfaces.ChatInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chatErr != nil {
		return interfaces.ChatInfo{}, p.chatErr
	}
	return interfaces.ChatInfo{ID: chatID, DisplayName: "chat " + chatID, Kind: p.kind}, nil
}

func (p *fakePlatform) ListIconOptions(context.Context, string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.icons, p.iconErr
}

func (p *fakePlatform) CreateThread(_ context.Context, _ interfaces.ChatInfo, title, icon string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[title] {
		return "", errors.New("thread rejected")
	}
	p.creates++
	id := p.nextID("thread")
	p.threads[id] = title
	p.icon[id] = icon
	return id, nil
}

func (p *fakePlatform) SendMessage(_ context.Context, _, threadID, body string, _ interfaces.MessageFormat) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return "", p.sendErr
	}
	if _, ok := p.threads[threadID]; !ok {
		return "", fmt.Errorf("unknown thread %s", threadID)
	}
	p.sends++
	id := p.nextID("msg")
	p.messages[id] = body
	return id, nil
}

func (p *fakePlatform) PinMessage(_ context.Context, _, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinned = append(p.pinned, messageID)
	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _, _, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes++
	if _, ok := p.messages[messageID]; !ok {
		return interfaces.ErrMessageNotFound
	}
	delete(p.messages, messageID)
	return nil
}

func (p *fakePlatform) SendPoll(_ context.Context, _, threadID string, poll model.PollSpec) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls = append(p.polls, poll)
	return p.nextID("poll"), nil
}

// threadTitles 已创建帖子的标题，升序
func (p *fakePlatform) threadTitles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.threads))
	for _, t := range p.threads {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// fakeSource 内存剧目来源
type fakeSource struct {
	records  map[string]*model.RawItemRecord
	itemErr  map[string]error
	indexErr error
}

func (s *fakeSource) GetName() string { return "fake" }

func (s *fakeSource) FetchIndex(context.Context) ([]string, error) {
	if s.indexErr != nil {
		return nil, s.indexErr
	}
	urls := make([]string, 0, len(s.records)+len(s.itemErr))
	for u := range s.records {
		urls = append(urls, u)
	}
	for u := range s.itemErr {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

func (s *fakeSource) FetchItem(_ context.Context, url string) (*model.RawItemRecord, error) {
	if err := s.itemErr[url]; err != nil {
		return nil, err
	}
	rec, ok := s.records[url]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return rec, nil
}

func (s *fakeSource) FetchAll(ctx context.Context, onItemError interfaces.ItemErrorFunc) (map[string]*model.RawItemRecord, error) {
	urls, err := s.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]*model.RawItemRecord{}
	for _, u := range urls {
		rec, err := s.FetchItem(ctx, u)
		if err != nil {
			if onItemError != nil {
				onItemError(u, err)
			}
			continue
		}
		out[u] = rec
	}
	return out, nil
}
