package service

import (
	"fmt"
	"strings"
	"time"

	"ShowSync/internal/model"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxMessageRunes 平台单条消息长度上限
	MaxMessageRunes = 2000
	timeLayout      = "02.01.2006 15:04"
)

// Renderer 生成置顶消息正文。模板空白固定，字段在入库前已折叠空白，
// 因此相同数据重复入库不会改变正文，可见内容的任何变化都会改变正文
type Renderer struct {
	baseURL string
	loc     *time.Location
}

func NewRenderer(baseURL string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), loc: loc}
}

// Body 只列出 start_time 晚于 now 的场次
func (r *Renderer) Body(show model.ShowWithScreenings, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n%s\n", show.Name, r.link(show.URL))
	if show.Description != "" {
		b.WriteString("\n" + show.Description + "\n")
	}
	if show.MetaInfo != "" {
		b.WriteString("\n" + show.MetaInfo + "\n")
	}

	b.WriteString("\nVorstellungen:\n")
	upcoming := model.Upcoming(show.Screenings, now)
	if len(upcoming) == 0 {
		b.WriteString("- keine geplanten Vorstellungen\n")
	}
	for _, s := range upcoming {
		b.WriteString("- " + r.screeningLine(s) + "\n")
	}
	return truncateRunes(strings.TrimRight(b.String(), "\n"), MaxMessageRunes)
}

func (r *Renderer) screeningLine(s model.Screening) string {
	when := s.StartTime.In(r.loc).Format(timeLayout)
	line := when
	if s.DetailURL != "" {
		line = fmt.Sprintf("[%s](%s)", when, r.link(s.DetailURL))
	}
	if s.Location != "" {
		line += " " + s.Location
	}
	switch s.TicketStatus {
	case model.TicketSoldOut:
		line += " (ausverkauft)"
	case model.TicketAvailable:
		if s.TicketURL != "" {
			line += fmt.Sprintf(" [Tickets](%s)", s.TicketURL)
		}
	}
	return line
}

// link 站内路径补全为绝对地址
func (r *Renderer) link(u string) string {
	if strings.HasPrefix(u, "/") {
		return r.baseURL + u
	}
	return u
}

// BodyHash 正文的 xxhash64，16 位十六进制
func BodyHash(body string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(body))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
