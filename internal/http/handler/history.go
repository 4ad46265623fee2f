package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrilog/internal/auth"
	"nutrilog/internal/history"
	"nutrilog/internal/ledger"
)

type HistoryReader interface {
	Range(ctx context.Context, userID uint64, from, to string) ([]history.DailySummary, error)
	TagCounts(ctx context.Context, userID uint64, prefix string, limit int) ([]history.TagCount, error)
}

type HistoryHandler struct {
	Repo HistoryReader
	Log  *zap.Logger
	Now  func() time.Time
}

// List returns summaries for [from, to]. Without parameters it covers the
// seven days ending today.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if to == "" {
		to = now().Format(ledger.DateLayout)
	}
	toT, err := ledger.ParseDate(to)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	if from == "" {
		from = toT.AddDate(0, 0, -6).Format(ledger.DateLayout)
	}
	if _, err := ledger.ParseDate(from); err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	if from > to {
		http.Error(w, "from is after to", http.StatusBadRequest)
		return
	}

	rows, err := h.Repo.Range(r.Context(), uid, from, to)
	if err != nil {
		h.Log.Error("history range", zap.Uint64("user_id", uid), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []history.DailySummary{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *HistoryHandler) Tags(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	out, err := h.Repo.TagCounts(r.Context(), uid, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.Log.Error("history tags", zap.Uint64("user_id", uid), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []history.TagCount{}
	}
	writeJSON(w, http.StatusOK, out)
}
