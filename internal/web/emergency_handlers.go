package web

import (
	"net/http"
	"strconv"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
)

func (s *Server) handleActiveEmergency(w http.ResponseWriter, r *http.Request) {
	sess, err := s.emergency.Active()
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, sess, http.StatusOK)
}

func (s *Server) handleStartEmergency(w http.ResponseWriter, r *http.Request) {
	var in emergency.StartInput
	if !decodeBody(w, r, &in) {
		return
	}
	sess, err := s.emergency.Start(in)
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, sess, http.StatusCreated)
}

func (s *Server) handleResolveEmergency(w http.ResponseWriter, r *http.Request) {
	sess, err := s.emergency.Resolve()
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, sess, http.StatusOK)
}

func (s *Server) handleRollCall(w http.ResponseWriter, r *http.Request) {
	call, err := s.emergency.RollCall()
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, call, http.StatusOK)
}

func (s *Server) handleEmergencyHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.emergencyRepo.List()
	if err != nil {
		apiServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*emergency.Session{}
	}
	apiJSON(w, sessions, http.StatusOK)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apiError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.notifications.List(limit)
	if err != nil {
		apiServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*notify.Entry{}
	}
	apiJSON(w, entries, http.StatusOK)
}
