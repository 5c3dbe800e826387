package schauspielhaus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const (
	dtStartLayout = "20060102T150405"
	dateLayout    = "20060102"
)

// calendarEvent 日历文件中用到的字段
type calendarEvent struct {
	UID         string
	Start       time.Time
	Summary     string
	Description string
}

var icsUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

// parseCalendar 取第一个 VEVENT 的 UID / DTSTART / SUMMARY / DESCRIPTION。
// 浮动时间按 loc 解析，带 Z 后缀按 UTC，带 TZID 参数按该时区
func parseCalendar(body string, loc *time.Location) (calendarEvent, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return calendarEvent{}, fmt.Errorf("日历解析失败: %w", err)
	}
	events := cal.Events()
	if len(events) == 0 {
		return calendarEvent{}, errors.New("日历中没有 VEVENT")
	}
	ev := events[0]

	out := calendarEvent{UID: strings.TrimSpace(ev.Id())}
	if out.UID == "" {
		return calendarEvent{}, errors.New("日历缺少 UID")
	}

	prop := ev.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil || strings.TrimSpace(prop.Value) == "" {
		return calendarEvent{}, fmt.Errorf("日历 %s 缺少 DTSTART", out.UID)
	}
	tzLoc := loc
	if tzid, ok := prop.ICalParameters["TZID"]; ok && len(tzid) > 0 {
		if l, err := time.LoadLocation(tzid[0]); err == nil {
			tzLoc = l
		}
	}
	out.Start, err = parseDTStart(prop.Value, tzLoc)
	if err != nil {
		return calendarEvent{}, fmt.Errorf("日历 %s: %w", out.UID, err)
	}

	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = icsUnescaper.Replace(p.Value)
	}
	if p := ev.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = icsUnescaper.Replace(p.Value)
	}
	return out, nil
}

func parseDTStart(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse(dtStartLayout, strings.TrimSuffix(v, "Z"))
	case len(v) == len(dateLayout):
		return time.ParseInLocation(dateLayout, v, loc)
	default:
		t, err := time.ParseInLocation(dtStartLayout, v, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("DTSTART %q 格式错误: %w", v, err)
		}
		return t, nil
	}
}
