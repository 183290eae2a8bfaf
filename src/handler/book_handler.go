package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"signalengine/src/model"

	logger "github.com/sirupsen/logrus"
)

type bookReader interface {
	Snapshot() model.BookSnapshot
}

type tradeLister interface {
	ListByDate(ctx context.Context, day time.Time) ([]model.TradeLog, error)
}

// BookHandler returns the latest ledger snapshot, optionally filtered by ?symbol=.
func BookHandler(book bookReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := book.Snapshot()

		if symbol := r.URL.Query().Get("symbol"); symbol != "" {
			key := model.NormalizeSymbol(symbol)
			filtered := make([]model.Position, 0, len(snap.Open))
			for _, p := range snap.Open {
				if p.Symbol == key {
					filtered = append(filtered, p)
				}
			}
			snap.Open = filtered
		}

		writeJSON(w, snap)
	}
}

// TradesHandler lists the trades closed on ?date=YYYY-MM-DD (UTC), today by default.
func TradesHandler(repo tradeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := time.Now().UTC()
		if dateParam := r.URL.Query().Get("date"); dateParam != "" {
			parsed, err := time.Parse("2006-01-02", dateParam)
			if err != nil {
				http.Error(w, "invalid date", http.StatusBadRequest)
				return
			}
			day = parsed
		}

		trades, err := repo.ListByDate(r.Context(), day)
		if err != nil {
			logger.WithError(err).Error("failed to list trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, trades)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
