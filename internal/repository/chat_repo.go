package repository

import (
	"context"
	"errors"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

var _ interfaces.ChatRepository = (*ChatRepository)(nil)

func (r *ChatRepository) ListChats(ctx context.Context) ([]model.Chat, error) {
	var rows []chatRow
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, apperr.Store("list_chats", "", err)
	}
	out := make([]model.Chat, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *ChatRepository) GetChat(ctx context.Context, id string) (model.Chat, error) {
	var row chatRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Chat{}, interfaces.ErrNotFound
		}
		return model.Chat{}, apperr.Store("get_chat", id, err)
	}
	return row.toModel(), nil
}

// PutChat 新增聊天，已存在则只更新显示名称
func (r *ChatRepository) PutChat(ctx context.Context, chat model.Chat) error {
	row := chatFromModel(chat)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name"}),
	}).Create(&row).Error
	if err != nil {
		return apperr.Store("put_chat", chat.ID, err)
	}
	return nil
}
