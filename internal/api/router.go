package api

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// Handlers 管理接口全部处理器
type Handlers struct {
	Sync  *SyncHandler
	Shows *ShowHandler
	Chats *ChatHandler
}

// NewRouter 注册管理接口与 pprof
func NewRouter(h Handlers) *gin.Engine {
	r := gin.Default()
	pprof.Register(r)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// 同步
	r.POST("/sync", h.Sync.SyncNow)
	r.GET("/api/runs", h.Sync.ListRuns)

	// 剧目
	r.GET("/api/shows", h.Shows.ListShows)
	r.GET("/api/shows/:id", h.Shows.GetShow)

	// 聊天与讨论帖
	r.GET("/api/chats", h.Chats.ListChats)
	r.POST("/api/chats", h.Chats.AddChat)
	r.GET("/api/chats/:chat_id/topics", h.Chats.ListTopics)
	r.POST("/api/chats/:chat_id/reconcile", h.Chats.Reconcile)
	r.POST("/api/chats/:chat_id/topics/:thread_id/polls", h.Chats.SendPolls)

	return r
}
