// Package dashboard serves the operator dashboard's HTTP API.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tidal_efficiency/internal/analysis"
	"tidal_efficiency/internal/live"
	"tidal_efficiency/internal/model"
	"tidal_efficiency/internal/waterapi"
)

// LevelSource provides gauge levels, e.g. *waterapi.Client.
type LevelSource interface {
	LatestOrCached(ctx context.Context) (waterapi.Level, bool, error)
}

// DayHistory provides one calendar day of readings, e.g. *store.Store.
type DayHistory interface {
	Day(date time.Time) []model.Reading
}

// Archive provides persisted readings, e.g. *postgres.Repository.
type Archive interface {
	ReadingsInRange(ctx context.Context, start, end time.Time) ([]model.Reading, error)
}

// Options wires a Server. Feed and History are required.
type Options struct {
	Feed    *live.Feed
	History DayHistory
	Levels  LevelSource
	Archive Archive
	// Location cuts history days; UTC when nil.
	Location *time.Location
	// OnSummary is called with every summary passed to SetSummary.
	OnSummary func(analysis.Summary)
	Logger    *log.Logger
}

// Server holds dashboard state shared by its handlers.
type Server struct {
	opts Options

	mu      sync.RWMutex
	summary *analysis.Summary
}

func New(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{opts: opts}
}

// SetSummary publishes the result of the latest analysis run.
func (s *Server) SetSummary(sum analysis.Summary) {
	s.mu.Lock()
	s.summary = &sum
	s.mu.Unlock()
	if s.opts.OnSummary != nil {
		s.opts.OnSummary(sum)
	}
}

// Summary returns the latest analysis summary, if one was published.
func (s *Server) Summary() (analysis.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return analysis.Summary{}, false
	}
	return *s.summary, true
}

// Register adds the dashboard routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /data", s.handleData)
	mux.HandleFunc("GET /api/realtime", s.handleRealtime)
	mux.HandleFunc("GET /api/history/{date}", s.handleHistory)
	mux.HandleFunc("GET /api/analysis", s.handleAnalysis)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Feed.Latest())
}

type realtimeResponse struct {
	Timestamp string  `json:"timestamp"`
	Sea       float64 `json:"sea"`
	Lake      float64 `json:"lake"`
	Head      float64 `json:"head"`
	Stale     bool    `json:"stale"`
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if s.opts.Levels == nil {
		writeError(w, http.StatusServiceUnavailable, "water level service not configured")
		return
	}
	lvl, stale, err := s.opts.Levels.LatestOrCached(r.Context())
	if err != nil {
		s.opts.Logger.Printf("Realtime levels: %v", err)
		writeError(w, http.StatusBadGateway, "water level service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, realtimeResponse{
		Timestamp: lvl.Timestamp.In(s.opts.Location).Format(time.RFC3339),
		Sea:       lvl.Sea,
		Lake:      lvl.Lake,
		Head:      lvl.Head(),
		Stale:     stale,
	})
}

type historyReading struct {
	SensorID  string  `json:"sensor_id"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Timestamp string  `json:"timestamp"`
}

type historyResponse struct {
	Date     string           `json:"date"`
	Source   string           `json:"source"`
	Readings []historyReading `json:"readings"`
}

// handleHistory serves one day from memory, falling back to the archive
// for days already pruned from it.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("date")
	date, err := time.ParseInLocation("2006-01-02", raw, s.opts.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date "+raw)
		return
	}

	source := "memory"
	readings := s.opts.History.Day(date)
	if len(readings) == 0 && s.opts.Archive != nil {
		readings, err = s.opts.Archive.ReadingsInRange(r.Context(), date, date.AddDate(0, 0, 1))
		if err != nil {
			s.opts.Logger.Printf("History %s: %v", raw, err)
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		source = "archive"
	}

	resp := historyResponse{Date: raw, Source: source, Readings: make([]historyReading, 0, len(readings))}
	for _, rd := range readings {
		resp.Readings = append(resp.Readings, historyReading{
			SensorID:  rd.SensorID,
			Value:     rd.Value,
			Unit:      rd.Unit,
			Timestamp: rd.Timestamp.In(s.opts.Location).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.Summary()
	if !ok {
		writeError(w, http.StatusNotFound, "no analysis run yet")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
