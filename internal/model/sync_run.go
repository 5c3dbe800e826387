package model

import "time"

// SyncRun 一次抽取入库的运行记录
type SyncRun struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
	ShowsSeen   int          `json:"shows_seen"`
	ShowsStored int          `json:"shows_stored"`
	Failures    []RunFailure `json:"failures"`
}

// RunFailure 运行中单个剧目的失败
type RunFailure struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
