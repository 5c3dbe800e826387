package api

import (
	"context"
	"errors"
	"net/http"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ChatReconciler 聊天订阅与讨论帖同步
type ChatReconciler interface {
	AddChat(ctx context.Context, chatID string) (model.Chat, error)
	ReconcileChat(ctx context.Context, chatID string, force bool) error
	ReconcileAll(ctx context.Context, force bool) error
}

// PollSender 在讨论帖中发起投票
type PollSender interface {
	SendPolls(ctx context.Context, chatID, threadID string) ([]string, error)
}

type ChatHandler struct {
	chats     interfaces.ChatRepository
	topics    interfaces.TopicRepository
	reconcile ChatReconciler
	polls     PollSender
	logger    *logrus.Logger
}

func NewChatHandler(chats interfaces.ChatRepository, topics interfaces.TopicRepository, reconciler ChatReconciler, polls PollSender, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		chats:     chats,
		topics:    topics,
		reconcile: reconciler,
		polls:     polls,
		logger:    logger,
	}
}

// ListChats GET /api/chats
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.chats.ListChats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ListChats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

type addChatRequest struct {
	ID string `json:"id" binding:"required"`
}

// AddChat 订阅聊天
// POST /api/chats {"id": "..."}
func (h *ChatHandler) AddChat(c *gin.Context) {
	var req addChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, err := h.reconcile.AddChat(c.Request.Context(), req.ID)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", req.ID).Error("AddChat failed")
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat)
}

// ListTopics 聊天下已有的讨论帖（含已不在日历上的剧目）
// GET /api/chats/:chat_id/topics
func (h *ChatHandler) ListTopics(c *gin.Context) {
	chatID := c.Param("chat_id")
	topics, err := h.topics.ListChatTopics(c.Request.Context(), chatID)
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("ListTopics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "topics": topics})
}

// Reconcile 手动同步单个聊天
// POST /api/chats/:chat_id/reconcile?force=true
func (h *ChatHandler) Reconcile(c *gin.Context) {
	chatID := c.Param("chat_id")
	if _, err := h.chats.GetChat(c.Request.Context(), chatID); err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	force := c.Query("force") == "true"
	if err := h.reconcile.ReconcileChat(c.Request.Context(), chatID, force); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Reconcile failed")
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "force": force})
}

// SendPolls POST /api/chats/:chat_id/topics/:thread_id/polls
func (h *ChatHandler) SendPolls(c *gin.Context) {
	chatID, threadID := c.Param("chat_id"), c.Param("thread_id")
	ids, err := h.polls.SendPolls(c.Request.Context(), chatID, threadID)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{"chat_id": chatID, "thread_id": threadID}).Error("SendPolls failed")
		c.JSON(statusOf(err), gin.H{"error": err.Error(), "poll_ids": ids})
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll_ids": ids})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrNotFound), errors.Is(err, interfaces.ErrChatNotFound):
		return http.StatusNotFound
	case apperr.IsKind(err, apperr.KindPlatform):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
