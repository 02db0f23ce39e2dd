package response

import (
	"time"

	"github.com/user/quote-harvester/internal/entity"
)

type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks"`
}

type CheckpointResponse struct {
	SiteKey   string    `json:"site_key"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatsResponse is a DTO for store progress, mirroring entity.StoreStats
type StatsResponse struct {
	Total       int                  `json:"total"`
	ByLanguage  map[string]int       `json:"by_language"`
	Checkpoints []CheckpointResponse `json:"checkpoints"`
}

type RunsResponse struct {
	Runs []entity.CrawlReport `json:"runs"`
}

type ResetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	SiteKey string `json:"site_key"`
}

func NewStatsResponse(stats *entity.StoreStats) StatsResponse {
	resp := StatsResponse{
		Total:       stats.Total,
		ByLanguage:  stats.ByLanguage,
		Checkpoints: make([]CheckpointResponse, 0, len(stats.Checkpoints)),
	}
	for _, cp := range stats.Checkpoints {
		resp.Checkpoints = append(resp.Checkpoints, CheckpointResponse{
			SiteKey:   cp.SiteKey,
			Token:     cp.Token,
			UpdatedAt: cp.UpdatedAt,
		})
	}
	return resp
}
