package web

import (
	"net/http"
	"strings"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/migrate"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// handleImportVisitor stores a visitor migrated from a kiosk's local store,
// keeping its ID and lifecycle fields.
func (s *Server) handleImportVisitor(w http.ResponseWriter, r *http.Request) {
	var rv migrate.RemoteVisitor
	if !decodeBody(w, r, &rv) {
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(rv.ID) == "" {
		fields["id"] = "is required"
	}
	if strings.TrimSpace(rv.FirstName) == "" {
		fields["first_name"] = "is required"
	}
	if !visitor.Status(rv.Status).IsValid() {
		fields["status"] = "must be pre-registered, checked-in or checked-out"
	}
	if len(fields) > 0 {
		apiServiceError(w, &visitor.ValidationError{Fields: fields})
		return
	}

	v, err := s.visitorRepo.Insert(rv.Visitor())
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, v, http.StatusCreated)
}

// handleImportEmergencySession stores a session migrated from a kiosk.
func (s *Server) handleImportEmergencySession(w http.ResponseWriter, r *http.Request) {
	var rs migrate.RemoteEmergencySession
	if !decodeBody(w, r, &rs) {
		return
	}

	sess := rs.Session()
	switch {
	case strings.TrimSpace(sess.ID) == "":
		apiError(w, "id is required", http.StatusBadRequest)
		return
	case !sess.Type.IsValid(), !sess.Severity.IsValid():
		apiError(w, "invalid type or severity", http.StatusBadRequest)
		return
	case sess.Status != emergency.StatusActive && sess.Status != emergency.StatusResolved:
		apiError(w, "status must be active or resolved", http.StatusBadRequest)
		return
	case sess.StartedAt.IsZero():
		apiError(w, "started_at is required", http.StatusBadRequest)
		return
	}

	if err := s.emergencyRepo.Insert(sess); err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, sess, http.StatusCreated)
}
