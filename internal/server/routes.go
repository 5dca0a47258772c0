package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/daybook-sh/daybook/internal/engine"
	"github.com/daybook-sh/daybook/internal/store"
)

// graphTimeout bounds graph building, which is quadratic in entry count.
const graphTimeout = 60 * time.Second

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         string   `json:"id"`
		Content    string   `json:"content"`
		StartTime  string   `json:"start_time"`
		EndTime    string   `json:"end_time"`
		Importance *float64 `json:"importance"`
		Tags       []string `json:"tags"`
		Category   string   `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	entry := store.Entry{
		ID:       req.ID,
		Content:  req.Content,
		Tags:     req.Tags,
		Category: req.Category,
	}

	entry.StartTime = time.Now()
	if req.StartTime != "" {
		t, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_time must be RFC 3339")
			return
		}
		entry.StartTime = t
	}
	if req.EndTime != "" {
		t, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_time must be RFC 3339")
			return
		}
		entry.EndTime = &t
	}

	entry.Importance = 0.5
	if req.Importance != nil {
		entry.Importance = *req.Importance
	}

	if err := s.db.InsertEntry(&entry); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 0)

	entries, err := s.db.ListRecent(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")

	entry, err := s.db.GetEntry(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	// Retrieval counts as an access for behavioral scoring. Best effort:
	// a broken access log degrades that signal but never fails the read.
	if err := s.db.TouchEntry(id); err != nil {
		log.Warn("record entry access failed", "id", id, "err", err)
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}
	limit := queryInt(r, "limit", 5)
	days := queryInt(r, "days", 0)

	entries, err := s.db.ListRecent(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	freq, err := s.db.Frequencies(entries)
	if err != nil {
		freq = map[string]int{}
	}

	results := s.recommender.Relevance().FindRelated(r.Context(), entries, query, freq, limit, time.Now())
	for _, res := range results {
		if err := s.db.TouchEntry(res.ID); err != nil {
			log.Warn("record entry access failed", "id", res.ID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string                  `json:"query"`
		MaxResults int                     `json:"max_results"`
		Days       int                     `json:"days"`
		Strategies *engine.StrategyWeights `json:"strategy_weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	entries, err := s.db.ListRecent(req.Days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := s.recommender.Recommend(r.Context(), req.Query, entries, req.MaxResults, req.Strategies)

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	threshold := s.graphThreshold
	if t := r.URL.Query().Get("threshold"); t != "" {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = v
	}
	days := queryInt(r, "days", 0)

	entries, err := s.db.ListRecent(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), graphTimeout)
	defer cancel()

	graph, err := s.recommender.Relevance().BuildGraph(ctx, entries, threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"nodes":     len(graph),
		"graph":     graph,
	})
}

func (s *Server) handleAttention(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	factor := 0.5
	if f := r.URL.Query().Get("factor"); f != "" {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "factor must be a number in [0,1]")
			return
		}
		factor = v
	}
	days := queryInt(r, "days", 0)

	entries, err := s.db.ListRecent(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	weights := s.recommender.Relevance().Attention(r.Context(), entries, query, factor, time.Now())

	writeJSON(w, http.StatusOK, map[string]any{
		"query":           query,
		"temporal_factor": factor,
		"count":           len(weights),
		"weights":         weights,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", s.insightDays)

	entries, err := s.db.ListRecent(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), graphTimeout)
	defer cancel()

	report := s.recommender.Insights(ctx, entries, days)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	var partial map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := s.recommender.Relevance().UpdateWeights(partial); err != nil {
		if errors.Is(err, engine.ErrInvalidWeightKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.recommender.Relevance().Weights())
}

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recommender.Relevance().Weights())
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
