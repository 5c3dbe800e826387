package api

import (
	"context"
	"net/http"
	"strconv"

	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SyncRunner 执行一轮抽取入库
type SyncRunner interface {
	Run(ctx context.Context) (*model.SyncRun, error)
}

type SyncHandler struct {
	sync      SyncRunner
	reconcile ChatReconciler
	runs      interfaces.RunRepository
	logger    *logrus.Logger
}

func NewSyncHandler(syncRunner SyncRunner, reconciler ChatReconciler, runs interfaces.RunRepository, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		sync:      syncRunner,
		reconcile: reconciler,
		runs:      runs,
		logger:    logger,
	}
}

// SyncNow 手动触发一轮同步，reconcile=false 时只抽取入库
// POST /sync?reconcile=true
func (h *SyncHandler) SyncNow(c *gin.Context) {
	run, err := h.sync.Run(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("手动同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "run": run})
		return
	}

	resp := gin.H{"run": run}
	if c.DefaultQuery("reconcile", "true") == "true" {
		if err := h.reconcile.ReconcileAll(c.Request.Context(), false); err != nil {
			h.logger.WithError(err).Warn("手动同步：聊天同步存在失败")
			resp["reconcile_error"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns 最近的运行记录
// GET /api/runs?limit=20
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("ListRuns failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
