package schauspielhaus

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/config"

	"github.com/sirupsen/logrus"
)

const indexHTML = `<html><body>
<div class="activity"><a class="activity__title" href="/de/produktionen/hamlet">Hamlet</a></div>
<div class="activity"><a class="activity__title" href="/de/produktionen/hamlet">Hamlet</a></div>
<div class="activity"><a class="activity__title" href="/de/produktionen/kaputt">Kaputt</a></div>
<div class="activity"><a class="activity__title" href="/de/produktionen/ohne-titel">Ohne Titel</a></div>
<div class="activity"><a class="activity__title">kein Link</a></div>
</body></html>`

const hamletHTML = `<html><body>
<h1 class="production__title">Hamlet</h1>
<div class="production__subtitle">nach William   Shakespeare</div>
<div class="production__text"><p>Erster Absatz.</p></div>
<div class="production__text"><p>Zweiter
   Absatz.</p></div>
<ul class="infos-column__list">
  <li><strong>Dauer</strong> 2h 30min</li>
  <li><strong>Sprache</strong> Deutsch</li>
</ul>
<img class="production__heroimage" src="/placeholder.gif" data-src="/media/hamlet.jpg">
<div class="activity-snippet">
  <div class="activity-snippet__date">Do 03.10. 18:30 Schiffbau/Halle</div>
  <a class="calendar-icon" href="/ics/1.ics">ics</a>
  <a class="activity-snippet__ticket" href="https://tickets.example/1">Tickets</a>
</div>
<div class="activity-snippet">
  <div class="activity-snippet__date">Do 05.12. 19:30 Pfauen</div>
  <a class="calendar-icon" href="/ics/2.ics">ics</a>
  <span class="activity-snippet__soldout">Ausverkauft</span>
</div>
<div class="activity-snippet">
  <div class="activity-snippet__date">Fr 06.12. 20:00 Pfauen</div>
</div>
<div class="activity-snippet">
  <div class="activity-snippet__date">Sa 07.12. 20:00 Pfauen</div>
  <a class="calendar-icon" href="/ics/no-start.ics">ics</a>
</div>
</body></html>`

const untitledHTML = `<html><body>
<div class="activity-snippet">
  <div class="activity-snippet__date">So 08.12. 17:00 Box</div>
  <a class="calendar-icon" href="/ics/3.ics">ics</a>
</div>
</body></html>`

func ics(uid, dtstart, summary, description string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN", "BEGIN:VEVENT"}
	if uid != "" {
		lines = append(lines, "UID:"+uid)
	}
	if dtstart != "" {
		lines = append(lines, "DTSTART:"+dtstart)
	}
	if summary != "" {
		lines = append(lines, "SUMMARY:"+summary)
	}
	if description != "" {
		lines = append(lines, "DESCRIPTION:"+description)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

type fixture struct {
	srv     *httptest.Server
	mu      sync.Mutex
	hits    map[string]int
	adapter *Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{hits: make(map[string]int)}
	pages := map[string]string{
		"/de/kalender":                indexHTML,
		"/de/produktionen/hamlet":     hamletHTML,
		"/de/produktionen/ohne-titel": untitledHTML,
		"/ics/1.ics":                  ics("evt-1", "20241003T183000", "Hamlet", ""),
		"/ics/2.ics":                  ics("evt-2", "20241205T193000", "Hamlet", ""),
		"/ics/3.ics":                  ics("evt-3", "20241208T170000", "Aus dem Kalender", `Text aus\, dem Kalender`),
		"/ics/no-start.ics":           ics("evt-4", "", "Hamlet", ""),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		body, ok := pages[r.URL.Path]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(f.srv.Close)

	cfg := &config.SourceConfig{
		Name:      Name,
		BaseURL:   f.srv.URL,
		IndexPath: "/de/kalender",
		Timezone:  "Europe/Zurich",
		Selectors: config.DefaultSelectors(),
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	a, err := New(cfg, f.srv.Client(), nil, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.adapter = a
	return f
}

func TestFetchIndexDeduplicates(t *testing.T) {
	f := newFixture(t)
	urls, err := f.adapter.FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("FetchIndex: %v", err)
	}
	want := []string{"/de/produktionen/hamlet", "/de/produktionen/kaputt", "/de/produktionen/ohne-titel"}
	if strings.Join(urls, ",") != strings.Join(want, ",") {
		t.Errorf("urls = %v, want %v", urls, want)
	}
}

func TestFetchIndexFailureIsFetchError(t *testing.T) {
	f := newFixture(t)
	f.adapter.cfg.IndexPath = "/de/missing"
	_, err := f.adapter.FetchIndex(context.Background())
	if !apperr.IsKind(err, apperr.KindFetch) {
		t.Fatalf("want fetch error, got %v", err)
	}
}

func TestFetchItemExtractsFields(t *testing.T) {
	f := newFixture(t)
	rec, err := f.adapter.FetchItem(context.Background(), "/de/produktionen/hamlet")
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}

	if rec.Title != "Hamlet" || rec.Subtitle != "nach William   Shakespeare" {
		t.Errorf("title/subtitle = %q / %q", rec.Title, rec.Subtitle)
	}
	if len(rec.Description) != 2 {
		t.Errorf("description blocks = %q", rec.Description)
	}
	if len(rec.MetaLines) != 2 || rec.MetaLines[0] != "Dauer 2h 30min" {
		t.Errorf("meta lines = %q", rec.MetaLines)
	}
	if rec.ImageURL != f.srv.URL+"/media/hamlet.jpg" {
		t.Errorf("image = %q", rec.ImageURL)
	}

	// 缺日历链接和缺 DTSTART 的两个场次被跳过
	if len(rec.Events) != 2 {
		t.Fatalf("events = %d, want 2: %+v", len(rec.Events), rec.Events)
	}
	first, second := rec.Events[0], rec.Events[1]
	if first.ExternalID != "evt-1" || first.Location != "Schiffbau/Halle" || first.DetailURL != "/ics/1.ics" {
		t.Errorf("first event = %+v", first)
	}
	if first.SoldOut || first.TicketURL != "https://tickets.example/1" {
		t.Errorf("first ticket = sold_out:%v url:%q", first.SoldOut, first.TicketURL)
	}
	if !second.SoldOut || second.TicketURL != "" {
		t.Errorf("second ticket = sold_out:%v url:%q", second.SoldOut, second.TicketURL)
	}

	// 夏令时 +02:00，冬令时 +01:00
	if want := time.Date(2024, 10, 3, 16, 30, 0, 0, time.UTC); !first.StartTime.Equal(want) {
		t.Errorf("first start = %v, want %v", first.StartTime.UTC(), want)
	}
	if want := time.Date(2024, 12, 5, 18, 30, 0, 0, time.UTC); !second.StartTime.Equal(want) {
		t.Errorf("second start = %v, want %v", second.StartTime.UTC(), want)
	}
}

func TestFetchItemFallsBackToCalendar(t *testing.T) {
	f := newFixture(t)
	rec, err := f.adapter.FetchItem(context.Background(), f.srv.URL+"/de/produktionen/ohne-titel")
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	if rec.URL != "/de/produktionen/ohne-titel" {
		t.Errorf("absolute same-host url not reduced to path: %q", rec.URL)
	}
	if rec.Title != "Aus dem Kalender" {
		t.Errorf("title = %q", rec.Title)
	}
	if len(rec.Description) != 1 || rec.Description[0] != "Text aus, dem Kalender" {
		t.Errorf("description = %q", rec.Description)
	}
	if rec.Events[0].TicketURL != "" || rec.Events[0].SoldOut {
		t.Errorf("event without ticket info = %+v", rec.Events[0])
	}
}

func TestFetchAllSkipsFailedItems(t *testing.T) {
	f := newFixture(t)
	var failed []string
	got, err := f.adapter.FetchAll(context.Background(), func(url string, err error) {
		if !apperr.IsKind(err, apperr.KindFetch) {
			t.Errorf("%s: want fetch error, got %v", url, err)
		}
		failed = append(failed, url)
	})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if _, ok := got["/de/produktionen/hamlet"]; !ok {
		t.Error("hamlet missing")
	}
	if len(failed) != 1 || failed[0] != "/de/produktionen/kaputt" {
		t.Errorf("failed = %v", failed)
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapCache) Get(_ context.Context, k string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[k]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, k, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[k] = v
	return nil
}

func TestCalendarDocumentsAreCached(t *testing.T) {
	f := newFixture(t)
	f.adapter.cache = &mapCache{data: map[string]string{}}

	for i := 0; i < 2; i++ {
		if _, err := f.adapter.FetchItem(context.Background(), "/de/produktionen/hamlet"); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.hits["/ics/1.ics"]; n != 1 {
		t.Errorf("calendar fetched %d times, want 1", n)
	}
	if n := f.hits["/de/produktionen/hamlet"]; n != 2 {
		t.Errorf("item page fetched %d times, want 2", n)
	}
}

func TestRequestDelayHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.adapter.cfg.RequestDelay = time.Hour
	if _, err := f.adapter.FetchIndex(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.adapter.FetchIndex(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	logger := logrus.New()
	if _, err := New(&config.SourceConfig{BaseURL: "not a url", Selectors: config.DefaultSelectors()}, http.DefaultClient, nil, logger); err == nil {
		t.Error("bad base url accepted")
	}
	sel := config.DefaultSelectors()
	sel.EventBlock = "div[["
	if _, err := New(&config.SourceConfig{BaseURL: "https://example.org", Selectors: sel}, http.DefaultClient, nil, logger); err == nil {
		t.Error("bad selector accepted")
	}
	sel = config.DefaultSelectors()
	sel.IndexItem = ""
	if _, err := New(&config.SourceConfig{BaseURL: "https://example.org", Selectors: sel}, http.DefaultClient, nil, logger); err == nil {
		t.Error("empty required selector accepted")
	}
}
