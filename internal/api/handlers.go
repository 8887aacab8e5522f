package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ffrankings/ingestion/internal/models"
	"ffrankings/ingestion/internal/pipeline"
	"ffrankings/ingestion/internal/ranking"
	"ffrankings/ingestion/internal/rankings"

	"github.com/rs/zerolog/log"
)

type snapshotResponse struct {
	OK                bool           `json:"ok"`
	Season            int            `json:"season"`
	Week              int            `json:"week"`
	Source            ranking.Source `json:"source"`
	UpsertedPlayers   int            `json:"upsertedPlayers"`
	InsertedSnapshots int            `json:"insertedSnapshots"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleSnapshot runs the pipeline for ?season=&week=, defaulting either to
// the current period.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	seasonNum, err := optionalInt(q.Get("season"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid season: %w", err))
		return
	}
	week, err := optionalInt(q.Get("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid week: %w", err))
		return
	}

	period := pipeline.Default(seasonNum, week, s.opts.Now(), s.opts.SeasonStart)
	if err := period.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.runner.Run(r.Context(), period.Season, period.Week)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, models.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		log.Error().Err(err).Str("period", period.String()).Msg("Triggered snapshot failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		OK:                true,
		Season:            res.Season,
		Week:              res.Week,
		Source:            res.Source,
		UpsertedPlayers:   res.UpsertedPlayers,
		InsertedSnapshots: res.InsertedSnapshots,
	})
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter, err := rankings.ParseFilter(q.Get("position"), q.Get("team"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rows, err := s.reader.Current(r.Context(), filter)
	if err != nil {
		if errors.Is(err, rankings.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		log.Error().Err(err).Msg("Failed to load current rankings")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing player id"))
		return
	}

	points, err := s.reader.History(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("player_id", id).Msg("Failed to load player history")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, points)
}

// optionalInt parses v, treating an empty string as zero
func optionalInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
