package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseSessionFilter builds a session filter from query-string parameters.
// Unset parameters are not applied; unparseable values are ignored.
func parseSessionFilter(r *http.Request) domain.SessionFilter {
	q := r.URL.Query()
	var f domain.SessionFilter

	for _, s := range q["status"] {
		f.Statuses = append(f.Statuses, domain.SessionStatus(s))
	}
	f.Categories = q["category"]
	f.Author = q.Get("author")
	f.Text = q.Get("text")

	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &t
		}
	}
	if v := q.Get("minTrades"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.MinTrades = &n
		}
	}
	if v := q.Get("maxTrades"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.MaxTrades = &n
		}
	}
	if v := q.Get("minConfidence"); v != "" {
		if c, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinConfidence = &c
		}
	}
	return f
}
