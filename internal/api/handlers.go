// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kkin1995/healthkit/internal/hktype"
	"github.com/kkin1995/healthkit/internal/log"
	"github.com/kkin1995/healthkit/internal/metrics"
	"github.com/kkin1995/healthkit/internal/store"
)

// importTimeout bounds one import run. Exports past a few GB do not take
// this long to stream on any realistic disk.
const importTimeout = 30 * time.Minute

const dateLayout = "2006-01-02"

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	// Acquire the import flag atomically; fail fast if already running
	if !s.importing.CompareAndSwap(false, true) {
		logger.Warn().
			Str("event", "import.conflict").
			Msg("import already in progress")

		w.Header().Set("Retry-After", "30")
		respondError(w, http.StatusConflict, "conflict", "An import is already in progress")
		return
	}
	defer s.importing.Store(false)

	// Independent context so a client disconnect does not cancel the job.
	jobCtx, cancel := context.WithTimeout(context.Background(), importTimeout)
	defer cancel()

	status, err := s.importFn(jobCtx)
	if err != nil {
		s.mu.Lock()
		s.status.Error = "import failed"
		s.mu.Unlock()

		logger.Error().
			Err(err).
			Str("event", "import.request_failed").
			Msg("import request failed")
		writeInternalError(w)
		return
	}

	s.mu.Lock()
	s.status = *status
	s.mu.Unlock()

	// Readers must not see pre-import query results.
	s.cache.Clear()

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	records, workouts, err := s.store.Counts(r.Context())
	if err != nil {
		log.WithComponentFromContext(r.Context(), "api").Error().
			Err(err).
			Str("event", "status.counts_failed").
			Msg("failed to count stored rows")
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":         s.cfg.Version,
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
		"stored_records":  records,
		"stored_workouts": workouts,
		"last_import":     status,
		"cache":           s.cache.Stats(),
	})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	kindParam := r.URL.Query().Get("kind")
	var kind hktype.Kind
	if kindParam != "" {
		kind = hktype.Kind(kindParam)
		if kind != hktype.Quantity && kind != hktype.Category {
			writeBadRequest(w, hktype.ErrUnknownKind.Error())
			return
		}
	}

	key := "types|" + kindParam
	payload, err := s.fetchCached(key, func() (any, error) {
		types, err := s.store.Types(r.Context(), kind)
		if err != nil {
			return nil, err
		}
		if types == nil {
			types = []store.TypeCount{}
		}
		return map[string]any{"types": types}, nil
	})
	if err != nil {
		s.logQueryError(r, "types", err)
		writeInternalError(w)
		return
	}
	writePayload(w, payload)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	typ := q.Get("type")
	if typ == "" {
		writeBadRequest(w, "query parameter 'type' is required")
		return
	}

	from, to, err := parseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
	}

	records, err := s.store.Records(r.Context(), store.RecordQuery{
		Type:  typ,
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		s.logQueryError(r, "records", err)
		writeInternalError(w)
		return
	}

	if len(records) == 0 {
		known, err := s.typeExists(r.Context(), typ)
		if err != nil {
			s.logQueryError(r, "records", err)
			writeInternalError(w)
			return
		}
		if !known {
			writeNotFound(w, fmt.Sprintf("unknown type %q", typ))
			return
		}
		records = []store.StoredRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	typ := q.Get("type")
	if typ == "" {
		writeBadRequest(w, "query parameter 'type' is required")
		return
	}

	from, to, err := parseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	key := "daily|" + typ + "|" + q.Get("from") + "|" + q.Get("to")
	payload, err := s.fetchCached(key, func() (any, error) {
		rows, err := s.store.DailyAggregates(r.Context(), typ, from, to)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			known, err := s.typeExists(r.Context(), typ)
			if err != nil {
				return nil, err
			}
			if !known {
				return nil, &unknownTypeError{typ: typ}
			}
			rows = []store.DailyRow{}
		}
		return map[string]any{"daily": rows}, nil
	})
	if err != nil {
		var ute *unknownTypeError
		if errors.As(err, &ute) {
			writeNotFound(w, ute.Error())
			return
		}
		s.logQueryError(r, "daily", err)
		writeInternalError(w)
		return
	}
	writePayload(w, payload)
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	payload, err := s.fetchCached("workouts", func() (any, error) {
		rows, err := s.store.WorkoutSummaries(r.Context())
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []store.WorkoutRow{}
		}
		return map[string]any{"workouts": rows}, nil
	})
	if err != nil {
		s.logQueryError(r, "workouts", err)
		writeInternalError(w)
		return
	}
	writePayload(w, payload)
}

type unknownTypeError struct{ typ string }

func (e *unknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.typ)
}

// fetchCached returns the JSON payload for key, computing it at most once
// across concurrent requests on a miss. Misses marshal once and cache the
// same bytes they serve.
func (s *Server) fetchCached(key string, fetch func() (any, error)) ([]byte, error) {
	if payload, ok := s.cache.Get(key); ok {
		metrics.IncCacheHit()
		return payload, nil
	}
	metrics.IncCacheMiss()

	v, err, _ := s.flight.Do(key, func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, payload, s.cfg.CacheTTL)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func writePayload(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) typeExists(ctx context.Context, typ string) (bool, error) {
	types, err := s.store.Types(ctx, "")
	if err != nil {
		return false, err
	}
	for _, tc := range types {
		if tc.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

func (s *Server) logQueryError(r *http.Request, query string, err error) {
	log.WithComponentFromContext(r.Context(), "api").Error().
		Err(err).
		Str("event", "query.failed").
		Str("query", query).
		Msg("store query failed")
}

// parseDateRange parses optional from/to date bounds in YYYY-MM-DD form.
// The to bound is inclusive of the whole day.
func parseDateRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		from, err = time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' date %q, want YYYY-MM-DD", fromStr)
		}
	}
	if toStr != "" {
		to, err = time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' date %q, want YYYY-MM-DD", toStr)
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("'to' date precedes 'from' date")
	}
	return from, to, nil
}
