package repository

import (
	"encoding/json"
	"time"

	"ShowSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type showRow struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	URL         string    `gorm:"column:url;type:varchar(512);uniqueIndex:uk_show_url;not null;comment:剧目站内路径"`
	Name        string    `gorm:"column:name;type:varchar(256);not null;comment:剧目名称"`
	Description string    `gorm:"column:description;type:text;comment:描述"`
	ImageURL    string    `gorm:"column:image_url;type:varchar(512);comment:头图"`
	MetaInfo    string    `gorm:"column:meta_info;type:text;comment:元信息"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间"`
}

func (showRow) TableName() string { return "shows" }

type screeningRow struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	ShowID          uint64    `gorm:"column:show_id;not null;index;comment:关联剧目ID"`
	Show            *showRow  `gorm:"foreignKey:ShowID;references:ID"`
	ExternalEventID string    `gorm:"column:external_event_id;type:varchar(256);uniqueIndex:uk_screening_external;not null;comment:日历UID"`
	Location        string    `gorm:"column:location;type:varchar(256);comment:演出地点"`
	DetailURL       string    `gorm:"column:detail_url;type:varchar(512);comment:日历文件地址"`
	StartTime       time.Time `gorm:"column:start_time;not null;index;comment:开始时间"`
	TicketStatus    string    `gorm:"column:ticket_status;type:varchar(16);not null;default:unknown;comment:票务状态"`
	TicketURL       string    `gorm:"column:ticket_url;type:varchar(512);comment:购票链接"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间"`
}

func (screeningRow) TableName() string { return "screenings" }

type chatRow struct {
	ID          string    `gorm:"column:id;type:varchar(64);primaryKey;comment:平台侧聊天ID"`
	DisplayName string    `gorm:"column:display_name;type:varchar(256);comment:显示名称"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间"`
}

func (chatRow) TableName() string { return "chats" }

type topicRow struct {
	ID                uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ChatID            string    `gorm:"column:chat_id;type:varchar(64);not null;uniqueIndex:uk_topic_chat_thread,priority:1;uniqueIndex:uk_topic_chat_show,priority:1"`
	Chat              *chatRow  `gorm:"foreignKey:ChatID;references:ID"`
	ThreadID          string    `gorm:"column:thread_id;type:varchar(64);not null;uniqueIndex:uk_topic_chat_thread,priority:2"`
	ShowID            uint64    `gorm:"column:show_id;not null;uniqueIndex:uk_topic_chat_show,priority:2"`
	Show              *showRow  `gorm:"foreignKey:ShowID;references:ID"`
	LastUpdated       time.Time `gorm:"column:last_updated;not null;comment:最近同步时间"`
	PinnedMessageID   string    `gorm:"column:pinned_message_id;type:varchar(64);comment:置顶消息ID"`
	PinnedMessageHash string    `gorm:"column:pinned_message_hash;type:varchar(16);comment:置顶消息正文哈希"`
}

func (topicRow) TableName() string { return "topics" }

type syncRunRow struct {
	ID          string         `gorm:"column:id;type:varchar(36);primaryKey;comment:运行ID"`
	StartedAt   time.Time      `gorm:"column:started_at;not null"`
	FinishedAt  *time.Time     `gorm:"column:finished_at"`
	ShowsSeen   int            `gorm:"column:shows_seen;not null;default:0"`
	ShowsStored int            `gorm:"column:shows_stored;not null;default:0"`
	Failures    datatypes.JSON `gorm:"column:failures;comment:失败明细"`
}

func (syncRunRow) TableName() string { return "sync_runs" }

// AutoMigrate 库表不存在则自动创建（按依赖顺序迁移）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&showRow{},
		&screeningRow{},
		&chatRow{},
		&topicRow{},
		&syncRunRow{},
	)
}

// ========== 行 <-> 领域模型 ==========

func showFromModel(s model.Show) showRow {
	return showRow{
		ID:          s.ID,
		URL:         s.URL,
		Name:        s.Name,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		MetaInfo:    s.MetaInfo,
	}
}

func (r showRow) toModel() model.Show {
	return model.Show{
		ID:          r.ID,
		URL:         r.URL,
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		MetaInfo:    r.MetaInfo,
	}
}

func screeningFromModel(s model.Screening, showID uint64) screeningRow {
	status := s.TicketStatus
	if status == "" {
		status = model.TicketUnknown
	}
	return screeningRow{
		ShowID:          showID,
		ExternalEventID: s.ExternalEventID,
		Location:        s.Location,
		DetailURL:       s.DetailURL,
		StartTime:       s.StartTime.UTC(),
		TicketStatus:    string(status),
		TicketURL:       s.TicketURL,
	}
}

func (r screeningRow) toModel() model.Screening {
	return model.Screening{
		ID:              r.ID,
		ShowID:          r.ShowID,
		ExternalEventID: r.ExternalEventID,
		Location:        r.Location,
		DetailURL:       r.DetailURL,
		StartTime:       r.StartTime.UTC(),
		TicketStatus:    model.TicketStatus(r.TicketStatus),
		TicketURL:       r.TicketURL,
	}
}

func chatFromModel(c model.Chat) chatRow {
	return chatRow{ID: c.ID, DisplayName: c.DisplayName, CreatedAt: c.CreatedAt}
}

func (r chatRow) toModel() model.Chat {
	return model.Chat{ID: r.ID, DisplayName: r.DisplayName, CreatedAt: r.CreatedAt}
}

func topicFromModel(t model.Topic) topicRow {
	return topicRow{
		ChatID:            t.ChatID,
		ThreadID:          t.ThreadID,
		ShowID:            t.ShowID,
		LastUpdated:       t.LastUpdated.UTC(),
		PinnedMessageID:   t.PinnedMessageID,
		PinnedMessageHash: t.PinnedMessageHash,
	}
}

func (r topicRow) toModel() model.Topic {
	return model.Topic{
		ChatID:            r.ChatID,
		ThreadID:          r.ThreadID,
		ShowID:            r.ShowID,
		LastUpdated:       r.LastUpdated.UTC(),
		PinnedMessageID:   r.PinnedMessageID,
		PinnedMessageHash: r.PinnedMessageHash,
	}
}

func runFromModel(run *model.SyncRun) (syncRunRow, error) {
	failures := run.Failures
	if failures == nil {
		failures = []model.RunFailure{}
	}
	raw, err := json.Marshal(failures)
	if err != nil {
		return syncRunRow{}, err
	}
	return syncRunRow{
		ID:          run.ID,
		StartedAt:   run.StartedAt.UTC(),
		FinishedAt:  run.FinishedAt,
		ShowsSeen:   run.ShowsSeen,
		ShowsStored: run.ShowsStored,
		Failures:    datatypes.JSON(raw),
	}, nil
}

func (r syncRunRow) toModel() model.SyncRun {
	run := model.SyncRun{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		ShowsSeen:   r.ShowsSeen,
		ShowsStored: r.ShowsStored,
	}
	if len(r.Failures) > 0 {
		_ = json.Unmarshal(r.Failures, &run.Failures)
	}
	return run
}
