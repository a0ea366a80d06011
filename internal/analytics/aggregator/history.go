package aggregator

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	defaultHistory = 20
	maxHistory     = 500
)

// History serves the most recent snapshots, newest first. The optional
// limit query parameter is clamped to [1, 500].
func (s *Store) History(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.ListSnapshots(r.Context(), historyLimit(r.URL.Query().Get("limit")))
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Error("failed to list snapshots", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "snapshot history unavailable"})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

func historyLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistory
	}
	if n > maxHistory {
		return maxHistory
	}
	return n
}
