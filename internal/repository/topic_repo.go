package repository

import (
	"context"
	"errors"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TopicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

var _ interfaces.TopicRepository = (*TopicRepository)(nil)

// UpsertTopic 按 (chat_id, thread_id) 写入讨论帖状态
func (r *TopicRepository) UpsertTopic(ctx context.Context, t model.Topic) error {
	if t.LastUpdated.IsZero() {
		t.LastUpdated = time.Now()
	}
	row := topicFromModel(t)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"show_id", "last_updated", "pinned_message_id", "pinned_message_hash"}),
	}).Create(&row).Error
	if err != nil {
		return apperr.Store("upsert_topic", t.ChatID+"/"+t.ThreadID, err)
	}
	return nil
}

// ListChatTopics 该聊天已有的全部讨论帖（含剧目已不在日历上的）
func (r *TopicRepository) ListChatTopics(ctx context.Context, chatID string) ([]model.TopicDetail, error) {
	db := r.db.WithContext(ctx)
	var rows []topicRow
	if err := db.Where("chat_id = ?", chatID).Order("id").Find(&rows).Error; err != nil {
		return nil, apperr.Store("list_chat_topics", chatID, err)
	}
	return withShows(db, rows)
}

// GetTopic 不存在返回 interfaces.ErrNotFound
func (r *TopicRepository) GetTopic(ctx context.Context, chatID, threadID string) (model.TopicDetail, error) {
	db := r.db.WithContext(ctx)
	var row topicRow
	if err := db.Where("chat_id = ? AND thread_id = ?", chatID, threadID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.TopicDetail{}, interfaces.ErrNotFound
		}
		return model.TopicDetail{}, apperr.Store("get_topic", chatID+"/"+threadID, err)
	}
	out, err := withShows(db, []topicRow{row})
	if err != nil {
		return model.TopicDetail{}, err
	}
	return out[0], nil
}

func withShows(db *gorm.DB, rows []topicRow) ([]model.TopicDetail, error) {
	if len(rows) == 0 {
		return []model.TopicDetail{}, nil
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ShowID)
	}
	var shows []showRow
	if err := db.Where("id IN ?", ids).Find(&shows).Error; err != nil {
		return nil, apperr.Store("load_topic_shows", "", err)
	}
	full, err := withScreenings(db, shows)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.ShowWithScreenings, len(full))
	for _, s := range full {
		byID[s.ID] = s
	}

	out := make([]model.TopicDetail, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.TopicDetail{Topic: r.toModel(), Show: byID[r.ShowID]})
	}
	return out, nil
}
