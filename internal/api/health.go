package api

import (
	"net/http"
	"runtime"
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime,omitempty"`
	Records   int          `json:"records"`
	LastRun   *time.Time   `json:"last_run,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	Memory    *MemoryStats `json:"memory,omitempty"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	AllocMB uint64 `json:"alloc_mb"`
	SysMB   uint64 `json:"sys_mb"`
	NumGC   uint32 `json:"num_gc"`
}

var startTime = time.Now()

// HandleHealth reports "ok", or "degraded" when the last run failed or the
// log cannot be read.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).String(),
		Memory: &MemoryStats{
			AllocMB: m.Alloc / 1024 / 1024,
			SysMB:   m.Sys / 1024 / 1024,
			NumGC:   m.NumGC,
		},
	}

	records, err := s.records.Load(r.Context())
	if err != nil {
		response.Status = "degraded"
		response.LastError = err.Error()
	}
	response.Records = len(records)

	if s.runs != nil {
		if run, ok := s.runs.LastRun(); ok {
			finished := run.Finished
			response.LastRun = &finished
			if run.Error != "" {
				response.Status = "degraded"
				response.LastError = run.Error
			}
		}
	}

	s.respondJSON(w, http.StatusOK, response)
}
