package adapthttp

import (
	"errors"
	"net/http"

	"orangemon/internal/app"
	"orangemon/internal/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	lastSuccess, lastErr := s.coordinator.Status()
	body := map[string]any{"ok": true}
	if !lastSuccess.IsZero() {
		body["last_success"] = lastSuccess
	}
	if lastErr != nil {
		body["last_error"] = lastErr.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.coordinator.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no snapshot yet"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.coordinator.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no snapshot yet"))
		return
	}
	writeJSON(w, http.StatusOK, snap.Summary)
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	snap := s.coordinator.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no snapshot yet"))
		return
	}
	writeJSON(w, http.StatusOK, app.BuildSensors(snap, s.dueLoc))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Refresh(r.Context()); err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfileInvoices(w http.ResponseWriter, r *http.Request) {
	id, ok := idPathValue(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid profile id"))
		return
	}
	raw, err := s.portal.ProfileInvoices(r.Context(), id)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(raw)
}

func (s *Server) handleProfileTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := idPathValue(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid profile id"))
		return
	}
	raw, err := s.portal.ProfileTransactions(r.Context(), id)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(raw)
}

// writeUpstreamError maps portal failures onto gateway statuses so the
// caller can tell a portal problem from a local one.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrAuthRejected) {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeError(w, http.StatusBadGateway, err)
}
