package model

import (
	"sort"
	"time"
)

// TicketStatus 场次票务状态
type TicketStatus string

const (
	TicketUnknown   TicketStatus = "unknown"   // 页面上没有票务信息
	TicketAvailable TicketStatus = "available" // 有购票链接
	TicketSoldOut   TicketStatus = "sold_out"  // 已售罄
)

// Show 剧目，url 为自然键
type Show struct {
	ID          uint64 `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	MetaInfo    string `json:"meta_info"`
}

// Screening 单场演出，external_event_id（日历 UID）为自然键
type Screening struct {
	ID              uint64       `json:"id"`
	ShowID          uint64       `json:"show_id"` // 入库前为 0
	ExternalEventID string       `json:"external_event_id"`
	Location        string       `json:"location"`
	DetailURL       string       `json:"detail_url"`
	StartTime       time.Time    `json:"start_time"`
	TicketStatus    TicketStatus `json:"ticket_status"`
	TicketURL       string       `json:"ticket_url,omitempty"`
}

// ShowWithScreenings 剧目及其全部场次（按开始时间升序）
type ShowWithScreenings struct {
	Show
	Screenings []Screening `json:"screenings"`
}

// Upcoming 返回 start_time 晚于 now 的场次，按开始时间升序
func Upcoming(screenings []Screening, now time.Time) []Screening {
	out := make([]Screening, 0, len(screenings))
	for _, s := range screenings {
		if s.StartTime.After(now) {
			out = append(out, s)
		}
	}
	SortScreenings(out)
	return out
}

// SortScreenings 按开始时间升序，时间相同按 external_event_id
func SortScreenings(screenings []Screening) {
	sort.SliceStable(screenings, func(i, j int) bool {
		if screenings[i].StartTime.Equal(screenings[j].StartTime) {
			return screenings[i].ExternalEventID < screenings[j].ExternalEventID
		}
		return screenings[i].StartTime.Before(screenings[j].StartTime)
	})
}

// RawItemRecord 详情页抽取结果（未规范化）
type RawItemRecord struct {
	URL         string     // 站内相对路径，如 /de/produktionen/xyz
	Title       string     // 剧目标题
	Subtitle    string     // 副标题，可能为空
	Description []string   // 描述段落
	MetaLines   []string   // 元信息行（已去除标签）
	ImageURL    string     // 头图
	Events      []RawEvent // 场次
}

// RawEvent 单个场次块的抽取结果
type RawEvent struct {
	ExternalID string    // 日历 UID
	Summary    string    // 日历 SUMMARY
	StartTime  time.Time // DTSTART，已按来源时区解析
	Location   string
	DetailURL  string // 日历文件地址
	SoldOut    bool
	TicketURL  string
}
