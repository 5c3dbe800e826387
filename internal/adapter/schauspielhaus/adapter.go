package schauspielhaus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ShowSync/internal/adapter"
	"ShowSync/internal/apperr"
	"ShowSync/internal/cache"
	"ShowSync/internal/config"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"
	"ShowSync/internal/utils/httpclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const Name = "schauspielhaus"

func init() {
	adapter.Register(Name, NewAdapter)
}

// Adapter 抓取 schauspielhaus.ch 日历页、剧目详情页和场次日历文件
type Adapter struct {
	cfg      *config.SourceConfig
	client   *http.Client
	base     *url.URL
	sel      *selectorSet
	loc      *time.Location
	cache    interfaces.DocumentCache
	logger   *logrus.Logger
	mu       sync.Mutex
	lastCall time.Time
}

// indexEntry 日历页中的一个剧目链接
type indexEntry struct {
	URL  string
	Name string
}

// NewAdapter 创建适配器；选择器、时区在此编译/解析一次
func NewAdapter(cfg *config.SourceConfig, docs interfaces.DocumentCache, logger *logrus.Logger) (interfaces.ShowSource, error) {
	return New(cfg, httpclient.NewHTTPClient(cfg, logger), docs, logger)
}

// New 使用指定 http.Client 创建适配器
func New(cfg *config.SourceConfig, client *http.Client, docs interfaces.DocumentCache, logger *logrus.Logger) (*Adapter, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("source.base_url 无效: %q", cfg.BaseURL)
	}
	sel, err := compileSelectors(cfg.Selectors)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = cache.Noop{}
	}
	return &Adapter{
		cfg:    cfg,
		client: client,
		base:   base,
		sel:    sel,
		loc:    loc,
		cache:  docs,
		logger: logger,
	}, nil
}

var _ interfaces.ShowSource = (*Adapter)(nil)

func (a *Adapter) GetName() string { return Name }

// FetchIndex 日历页中所有剧目链接，按出现顺序去重
func (a *Adapter) FetchIndex(ctx context.Context) ([]string, error) {
	entries, err := a.fetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	return urls, nil
}

func (a *Adapter) fetchIndex(ctx context.Context) ([]indexEntry, error) {
	indexURL := a.cfg.IndexURL()
	doc, err := a.fetchDocument(ctx, "fetch_index", indexURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var entries []indexEntry
	find(doc.Selection, a.sel.indexItem).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			a.logger.WithField("name", strings.TrimSpace(s.Text())).Warn("日历页条目缺少 href，跳过")
			return
		}
		key := a.itemKey(href)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		entries = append(entries, indexEntry{URL: key, Name: strings.TrimSpace(s.Text())})
	})
	a.logger.WithFields(logrus.Fields{"url": indexURL, "items": len(entries)}).Info("日历页解析完成")
	return entries, nil
}

// FetchItem 抓取单个剧目详情。场次块解析失败只记录日志并跳过该场次
func (a *Adapter) FetchItem(ctx context.Context, itemURL string) (*model.RawItemRecord, error) {
	key := a.itemKey(itemURL)
	doc, err := a.fetchDocument(ctx, "fetch_item", a.resolve(key))
	if err != nil {
		return nil, err
	}
	root := doc.Selection

	rec := &model.RawItemRecord{
		URL:      key,
		Title:    strings.TrimSpace(find(root, a.sel.title).First().Text()),
		Subtitle: strings.TrimSpace(find(root, a.sel.subtitle).First().Text()),
	}
	find(root, a.sel.description).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			rec.Description = append(rec.Description, t)
		}
	})
	find(root, a.sel.metaInfo).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			rec.MetaLines = append(rec.MetaLines, t)
		}
	})
	if img := find(root, a.sel.heroImage).First(); img.Length() > 0 {
		src, ok := img.Attr("data-src")
		if !ok || src == "" {
			src, _ = img.Attr("src")
		}
		if src != "" {
			rec.ImageURL = a.resolve(src)
		}
	}

	var calendarDescription string
	find(root, a.sel.eventBlock).Each(func(i int, block *goquery.Selection) {
		ev, desc, err := a.parseEvent(ctx, block)
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{"url": key, "block": i}).Warn("场次解析失败，跳过")
			return
		}
		if calendarDescription == "" {
			calendarDescription = desc
		}
		rec.Events = append(rec.Events, ev)
	})

	// 页面上没有标题/描述时退回日历文件中的 SUMMARY / DESCRIPTION
	if rec.Title == "" && len(rec.Events) > 0 {
		rec.Title = rec.Events[0].Summary
	}
	if len(rec.Description) == 0 && calendarDescription != "" {
		rec.Description = []string{calendarDescription}
	}
	return rec, nil
}

// FetchAll 日历页 + 逐个详情页（严格串行）。单个剧目失败记录后跳过，只有日历页失败才返回错误
func (a *Adapter) FetchAll(ctx context.Context, onItemError interfaces.ItemErrorFunc) (map[string]*model.RawItemRecord, error) {
	entries, err := a.fetchIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.RawItemRecord, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		rec, err := a.FetchItem(ctx, e.URL)
		if err != nil {
			a.logger.WithError(err).WithField("url", e.URL).Error("剧目抓取失败，跳过")
			if onItemError != nil {
				onItemError(e.URL, err)
			}
			continue
		}
		if rec.Title == "" {
			rec.Title = e.Name
		}
		out[e.URL] = rec
	}
	a.logger.WithFields(logrus.Fields{"items": len(entries), "fetched": len(out)}).Info("抓取完成")
	return out, nil
}

// parseEvent 解析一个场次块，第二个返回值为日历 DESCRIPTION
func (a *Adapter) parseEvent(ctx context.Context, block *goquery.Selection) (model.RawEvent, string, error) {
	href, ok := find(block, a.sel.calendarLink).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return model.RawEvent{}, "", apperr.Parse("parse_event", "", errors.New("缺少日历链接"))
	}
	calKey := a.itemKey(href)

	body, err := a.fetchCalendar(ctx, calKey)
	if err != nil {
		return model.RawEvent{}, "", err
	}
	cal, err := parseCalendar(body, a.loc)
	if err != nil {
		return model.RawEvent{}, "", apperr.Parse("parse_calendar", calKey, err)
	}

	ev := model.RawEvent{
		ExternalID: cal.UID,
		Summary:    cal.Summary,
		StartTime:  cal.Start,
		DetailURL:  calKey,
		SoldOut:    find(block, a.sel.soldOut).Length() > 0,
	}
	if m := locationPattern.FindStringSubmatch(find(block, a.sel.eventDate).First().Text()); len(m) == 2 {
		ev.Location = strings.TrimSpace(m[1])
	}
	if ticket, ok := find(block, a.sel.ticketLink).First().Attr("href"); ok && strings.TrimSpace(ticket) != "" {
		ev.TicketURL = a.resolve(ticket)
	}
	return ev, cal.Description, nil
}

// fetchCalendar 日历文件先查缓存
func (a *Adapter) fetchCalendar(ctx context.Context, key string) (string, error) {
	if body, ok, err := a.cache.Get(ctx, key); err != nil {
		a.logger.WithError(err).WithField("url", key).Warn("读取日历缓存失败")
	} else if ok {
		return body, nil
	}

	raw, err := a.get(ctx, "fetch_calendar", a.resolve(key))
	if err != nil {
		return "", err
	}
	body := string(raw)
	if err := a.cache.Set(ctx, key, body); err != nil {
		a.logger.WithError(err).WithField("url", key).Warn("写入日历缓存失败")
	}
	return body, nil
}

func (a *Adapter) fetchDocument(ctx context.Context, op, rawURL string) (*goquery.Document, error) {
	body, err := a.get(ctx, op, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Parse(op, rawURL, err)
	}
	return doc, nil
}

// get 串行请求，相邻请求间隔 source.request_delay
func (a *Adapter) get(ctx context.Context, op, rawURL string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if d := a.cfg.RequestDelay; d > 0 && !a.lastCall.IsZero() {
		if wait := d - time.Since(a.lastCall); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, apperr.Fetch(op, rawURL, ctx.Err())
			case <-timer.C:
			}
		}
	}
	body, err := httpclient.GetBody(ctx, a.client, rawURL)
	a.lastCall = time.Now()
	if err != nil {
		return nil, apperr.Fetch(op, rawURL, err)
	}
	return body, nil
}

// itemKey 站内链接统一为路径形式（含查询串），站外链接保持绝对地址
func (a *Adapter) itemKey(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return strings.TrimSpace(href)
	}
	abs := a.base.ResolveReference(u)
	if abs.Host != a.base.Host {
		return abs.String()
	}
	abs.Fragment = ""
	return abs.RequestURI()
}

// resolve 相对链接补全为绝对地址
func (a *Adapter) resolve(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return a.base.ResolveReference(u).String()
}
