package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShowRepository struct {
	db *gorm.DB
}

func NewShowRepository(db *gorm.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

var _ interfaces.ShowRepository = (*ShowRepository)(nil)

// UpsertShowWithScreenings 在一个事务内写入剧目及其场次：
// 剧目按 url 覆盖，场次按 external_event_id 覆盖（含 show_id，后写者胜）
func (r *ShowRepository) UpsertShowWithScreenings(ctx context.Context, in model.ShowWithScreenings) (model.ShowWithScreenings, error) {
	if in.URL == "" {
		return model.ShowWithScreenings{}, apperr.Store("upsert_show", "", errors.New("剧目 url 为空"))
	}

	// 开启事务
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return model.ShowWithScreenings{}, apperr.Store("upsert_show", in.URL, fmt.Errorf("开启事务失败: %w", tx.Error))
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	// 1. 剧目
	row := showFromModel(in.Show)
	row.ID = 0
	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "image_url", "meta_info", "updated_at"}),
	}).Create(&row).Error; err != nil {
		tx.Rollback()
		return model.ShowWithScreenings{}, apperr.Store("upsert_show", in.URL, err)
	}
	// 冲突更新时部分驱动返回的自增 id 不可靠，按自然键回读
	var persisted showRow
	if err := tx.Where("url = ?", in.URL).Take(&persisted).Error; err != nil {
		tx.Rollback()
		return model.ShowWithScreenings{}, apperr.Store("upsert_show", in.URL, fmt.Errorf("回读剧目id失败: %w", err))
	}

	// 2. 场次
	if len(in.Screenings) > 0 {
		rows := make([]screeningRow, 0, len(in.Screenings))
		for _, s := range in.Screenings {
			rows = append(rows, screeningFromModel(s, persisted.ID))
		}
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"show_id", "location", "detail_url", "start_time", "ticket_status", "ticket_url", "updated_at",
			}),
		}).Create(&rows).Error; err != nil {
			tx.Rollback()
			return model.ShowWithScreenings{}, apperr.Store("upsert_screenings", in.URL, err)
		}
	}

	screenings, err := loadScreenings(tx, []uint64{persisted.ID})
	if err != nil {
		tx.Rollback()
		return model.ShowWithScreenings{}, apperr.Store("upsert_show", in.URL, err)
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return model.ShowWithScreenings{}, apperr.Store("upsert_show", in.URL, fmt.Errorf("提交事务失败: %w", err))
	}
	return model.ShowWithScreenings{Show: persisted.toModel(), Screenings: screenings[persisted.ID]}, nil
}

// ListShows 全部剧目及场次，按 id 升序
func (r *ShowRepository) ListShows(ctx context.Context) ([]model.ShowWithScreenings, error) {
	var rows []showRow
	db := r.db.WithContext(ctx)
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, apperr.Store("list_shows", "", err)
	}
	return withScreenings(db, rows)
}

// GetShow 按 id 查询，不存在返回 interfaces.ErrNotFound
func (r *ShowRepository) GetShow(ctx context.Context, id uint64) (model.ShowWithScreenings, error) {
	db := r.db.WithContext(ctx)
	var row showRow
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ShowWithScreenings{}, interfaces.ErrNotFound
		}
		return model.ShowWithScreenings{}, apperr.Store("get_show", fmt.Sprint(id), err)
	}
	out, err := withScreenings(db, []showRow{row})
	if err != nil {
		return model.ShowWithScreenings{}, err
	}
	return out[0], nil
}

type showTopicScan struct {
	ID                uint64     `gorm:"column:id"`
	URL               string     `gorm:"column:url"`
	Name              string     `gorm:"column:name"`
	Description       string     `gorm:"column:description"`
	ImageURL          string     `gorm:"column:image_url"`
	MetaInfo          string     `gorm:"column:meta_info"`
	ThreadID          *string    `gorm:"column:topic_thread_id"`
	LastUpdated       *time.Time `gorm:"column:topic_last_updated"`
	PinnedMessageID   *string    `gorm:"column:topic_pinned_message_id"`
	PinnedMessageHash *string    `gorm:"column:topic_pinned_message_hash"`
}

// ListShowsWithTopic 全部剧目左连接该聊天的讨论帖（没有讨论帖的剧目也返回）
func (r *ShowRepository) ListShowsWithTopic(ctx context.Context, chatID string) ([]model.ShowTopic, error) {
	db := r.db.WithContext(ctx)
	var scans []showTopicScan
	err := db.Model(&showRow{}).
		Select("shows.id, shows.url, shows.name, shows.description, shows.image_url, shows.meta_info, " +
			"topics.thread_id AS topic_thread_id, topics.last_updated AS topic_last_updated, " +
			"topics.pinned_message_id AS topic_pinned_message_id, topics.pinned_message_hash AS topic_pinned_message_hash").
		Joins("LEFT JOIN topics ON topics.show_id = shows.id AND topics.chat_id = ?", chatID).
		Order("shows.id").
		Scan(&scans).Error
	if err != nil {
		return nil, apperr.Store("list_shows_with_topic", chatID, err)
	}

	ids := make([]uint64, 0, len(scans))
	for _, s := range scans {
		ids = append(ids, s.ID)
	}
	screenings, err := loadScreenings(db, ids)
	if err != nil {
		return nil, apperr.Store("list_shows_with_topic", chatID, err)
	}

	out := make([]model.ShowTopic, 0, len(scans))
	for _, s := range scans {
		st := model.ShowTopic{ShowWithScreenings: model.ShowWithScreenings{
			Show: model.Show{
				ID:          s.ID,
				URL:         s.URL,
				Name:        s.Name,
				Description: s.Description,
				ImageURL:    s.ImageURL,
				MetaInfo:    s.MetaInfo,
			},
			Screenings: screenings[s.ID],
		}}
		if s.ThreadID != nil {
			t := &model.Topic{ChatID: chatID, ThreadID: *s.ThreadID, ShowID: s.ID}
			if s.LastUpdated != nil {
				t.LastUpdated = s.LastUpdated.UTC()
			}
			if s.PinnedMessageID != nil {
				t.PinnedMessageID = *s.PinnedMessageID
			}
			if s.PinnedMessageHash != nil {
				t.PinnedMessageHash = *s.PinnedMessageHash
			}
			st.Topic = t
		}
		out = append(out, st)
	}
	return out, nil
}

func withScreenings(db *gorm.DB, rows []showRow) ([]model.ShowWithScreenings, error) {
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	screenings, err := loadScreenings(db, ids)
	if err != nil {
		return nil, apperr.Store("load_screenings", "", err)
	}
	out := make([]model.ShowWithScreenings, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ShowWithScreenings{Show: r.toModel(), Screenings: screenings[r.ID]})
	}
	return out, nil
}

// loadScreenings 按剧目分组加载场次，组内按开始时间升序
func loadScreenings(db *gorm.DB, showIDs []uint64) (map[uint64][]model.Screening, error) {
	out := make(map[uint64][]model.Screening, len(showIDs))
	if len(showIDs) == 0 {
		return out, nil
	}
	var rows []screeningRow
	if err := db.Where("show_id IN ?", showIDs).Order("start_time, external_event_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询场次失败: %w", err)
	}
	for _, r := range rows {
		out[r.ShowID] = append(out[r.ShowID], r.toModel())
	}
	return out, nil
}
