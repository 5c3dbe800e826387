package schauspielhaus

import (
	"fmt"
	"regexp"
	"strings"

	"ShowSync/internal/config"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// 场次日期行形如 "Di 03.10. 18:30 Schiffbau"，时间之后的部分是演出地点
var locationPattern = regexp.MustCompile(`\d{2}:\d{2}\s+(.*)`)

// selectorSet 启动时编译一次，之后只读
type selectorSet struct {
	indexItem    cascadia.Selector
	title        cascadia.Selector
	subtitle     cascadia.Selector
	description  cascadia.Selector
	metaInfo     cascadia.Selector
	heroImage    cascadia.Selector
	eventBlock   cascadia.Selector
	calendarLink cascadia.Selector
	eventDate    cascadia.Selector
	soldOut      cascadia.Selector
	ticketLink   cascadia.Selector
}

func compileSelectors(s config.SourceSelectors) (*selectorSet, error) {
	set := &selectorSet{}
	entries := []struct {
		name     string
		expr     string
		required bool
		dst      *cascadia.Selector
	}{
		{"index_item", s.IndexItem, true, &set.indexItem},
		{"title", s.Title, false, &set.title},
		{"subtitle", s.Subtitle, false, &set.subtitle},
		{"description", s.Description, false, &set.description},
		{"meta_info", s.MetaInfo, false, &set.metaInfo},
		{"hero_image", s.HeroImage, false, &set.heroImage},
		{"event_block", s.EventBlock, true, &set.eventBlock},
		{"calendar_link", s.CalendarLink, true, &set.calendarLink},
		{"event_date", s.EventDate, false, &set.eventDate},
		{"sold_out", s.SoldOut, false, &set.soldOut},
		{"ticket_link", s.TicketLink, false, &set.ticketLink},
	}
	for _, e := range entries {
		expr := strings.TrimSpace(e.expr)
		if expr == "" {
			if e.required {
				return nil, fmt.Errorf("选择器 %s 不能为空", e.name)
			}
			continue
		}
		sel, err := cascadia.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("选择器 %s 编译失败 (%q): %w", e.name, expr, err)
		}
		*e.dst = sel
	}
	return set, nil
}

// find 未配置的可选选择器返回空集合
func find(s *goquery.Selection, m cascadia.Selector) *goquery.Selection {
	if m == nil {
		return s.FindNodes()
	}
	return s.FindMatcher(m)
}
