package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"goalfin/internal/amqp"
	"goalfin/internal/services"
)

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Trends(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Trends failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not compute trends")
		return
	}
	respondSuccess(w, http.StatusOK, "", report)
}

func (s *Server) handleVariations(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Variations(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Variations failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not compute variations")
		return
	}
	respondSuccess(w, http.StatusOK, "", report)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Currencies(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Currencies failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not compute currency breakdown")
		return
	}
	respondSuccess(w, http.StatusOK, "", report)
}

// handleOverview computes trends, variations and currencies in one round
// trip, fanned out concurrently.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	var (
		trends     services.TrendReport
		variations services.VariationReport
		currencies services.CurrencyReport
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		trends, err = s.analytics.Trends(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		variations, err = s.analytics.Variations(ctx, uid)
		return err
	})
	g.Go(func() (err error) {
		currencies, err = s.analytics.Currencies(ctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Overview failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not build analytics overview")
		return
	}

	respondSuccess(w, http.StatusOK, "", map[string]any{
		"trends":     trends,
		"variations": variations,
		"currencies": currencies,
	})
}

func (s *Server) handleGenerateSnapshots(w http.ResponseWriter, r *http.Request) {
	created, err := s.analytics.GenerateDailySnapshots(r.Context(), userID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not generate snapshots")
		return
	}
	respondSuccess(w, http.StatusCreated, fmt.Sprintf("%d snapshots created", len(created)), created)
}

// handleSeedHistory backfills demo history. With a broker configured the
// work is enqueued and answered with 202; without one it runs inline.
func (s *Server) handleSeedHistory(w http.ResponseWriter, r *http.Request) {
	days := s.historyDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 730 {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 730")
			return
		}
		days = parsed
	}

	uid := userID(r)
	if s.publisher != nil {
		if err := s.publisher.PublishSnapshotRequest(r.Context(), amqp.NewBackfillRequest(uid, days)); err != nil {
			slog.ErrorContext(r.Context(), "Failed to enqueue backfill", "error", err, "user_id", uid)
			respondError(w, http.StatusServiceUnavailable, "Could not enqueue history generation")
			return
		}
		respondSuccess(w, http.StatusAccepted, fmt.Sprintf("History generation for %d days enqueued", days), nil)
		return
	}

	created, err := s.analytics.SeedHistory(r.Context(), uid, days)
	if err != nil {
		slog.ErrorContext(r.Context(), "History seeding failed", "error", err, "user_id", uid)
		respondError(w, http.StatusInternalServerError, "Could not generate history")
		return
	}
	respondSuccess(w, http.StatusCreated, fmt.Sprintf("%d historical snapshots created", len(created)), nil)
}
