package service

import (
	"regexp"
	"strings"

	"ShowSync/internal/model"
)

// 空白（含不换行空格）折叠为一个空格
var spaceRun = regexp.MustCompile(`[\s\x{00A0}\x{202F}]+`)

func foldSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// joinLines 每段按换行拆分，逐行折叠空白，去掉空行后以 \n 拼接
func joinLines(parts ...string) string {
	var lines []string
	for _, p := range parts {
		for _, l := range strings.Split(strings.ReplaceAll(p, "\r\n", "\n"), "\n") {
			if l = foldSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Normalize 规范化抽取结果。场次 ShowID 为 0，入库时由仓储填写；
// 同一 external_event_id 出现多次时以最后一次为准，结果按开始时间升序
func Normalize(raw *model.RawItemRecord) model.ShowWithScreenings {
	out := model.ShowWithScreenings{
		Show: model.Show{
			URL:         strings.TrimSpace(raw.URL),
			Name:        foldSpace(raw.Title),
			Description: joinLines(append([]string{raw.Subtitle}, raw.Description...)...),
			ImageURL:    strings.TrimSpace(raw.ImageURL),
			MetaInfo:    joinLines(raw.MetaLines...),
		},
	}

	index := make(map[string]int, len(raw.Events))
	for _, ev := range raw.Events {
		id := strings.TrimSpace(ev.ExternalID)
		if id == "" || ev.StartTime.IsZero() {
			continue
		}
		s := model.Screening{
			ExternalEventID: id,
			Location:        foldSpace(ev.Location),
			DetailURL:       strings.TrimSpace(ev.DetailURL),
			StartTime:       ev.StartTime,
		}
		switch {
		case ev.SoldOut:
			s.TicketStatus = model.TicketSoldOut
		case strings.TrimSpace(ev.TicketURL) != "":
			s.TicketStatus = model.TicketAvailable
			s.TicketURL = strings.TrimSpace(ev.TicketURL)
		default:
			s.TicketStatus = model.TicketUnknown
		}

		if i, ok := index[id]; ok {
			out.Screenings[i] = s
			continue
		}
		index[id] = len(out.Screenings)
		out.Screenings = append(out.Screenings, s)
	}
	model.SortScreenings(out.Screenings)
	return out
}
