package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/qr"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

const maxBodyBytes = 1 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// apiServiceError maps domain errors onto status codes.
func apiServiceError(w http.ResponseWriter, err error) {
	var ve *visitor.ValidationError
	switch {
	case errors.As(err, &ve):
		apiJSON(w, map[string]interface{}{"error": "validation failed", "fields": ve.Fields}, http.StatusBadRequest)
	case errors.Is(err, qr.ErrInvalidPayload),
		errors.Is(err, emergency.ErrInvalidInput):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, visitor.ErrNotFound),
		errors.Is(err, emergency.ErrNoActiveSession):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, visitor.ErrInvalidTransition),
		errors.Is(err, visitor.ErrDuplicateID),
		errors.Is(err, visitor.ErrBadgeInUse),
		errors.Is(err, emergency.ErrActiveSession),
		errors.Is(err, emergency.ErrDuplicateID):
		apiError(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("request failed", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeBody reads a JSON request body into dst. It writes a 400 and
// returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleListVisitors(w http.ResponseWriter, r *http.Request) {
	opts := visitor.ListOptions{Status: visitor.Status(r.URL.Query().Get("status"))}
	visitors, err := s.visitors.List(opts)
	if err != nil {
		apiServiceError(w, err)
		return
	}
	if visitors == nil {
		visitors = []*visitor.Visitor{}
	}
	apiJSON(w, visitors, http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in visitor.Input
	if !decodeBody(w, r, &in) {
		return
	}
	reg, err := s.visitors.Register(in)
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, reg, http.StatusCreated)
}

func (s *Server) handleGetVisitor(w http.ResponseWriter, r *http.Request) {
	v, err := s.visitors.Get(chi.URLParam(r, "id"))
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, v, http.StatusOK)
}

func (s *Server) handleDeleteVisitor(w http.ResponseWriter, r *http.Request) {
	if err := s.visitors.Delete(chi.URLParam(r, "id")); err != nil {
		apiServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVisitorQR(w http.ResponseWriter, r *http.Request) {
	v, err := s.visitors.Get(chi.URLParam(r, "id"))
	if err != nil {
		apiServiceError(w, err)
		return
	}
	if v.QRPayload == nil {
		apiError(w, "visitor has no QR payload", http.StatusNotFound)
		return
	}

	size := qr.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 1024 {
			apiError(w, "size must be between 64 and 1024", http.StatusBadRequest)
			return
		}
		size = n
	}

	png, err := qr.PNG(*v.QRPayload, size)
	if err != nil {
		apiServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := w.Write(png); err != nil {
		slog.Warn("writing QR image", "error", err)
	}
}

type checkInRequest struct {
	Payload string `json:"payload"`
	ID      string `json:"id"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		res *visitor.Result
		err error
	)
	switch {
	case strings.TrimSpace(req.Payload) != "":
		res, err = s.visitors.CheckInByPayload(req.Payload)
	case strings.TrimSpace(req.ID) != "":
		res, err = s.visitors.CheckIn(strings.TrimSpace(req.ID))
	default:
		apiError(w, "payload or id is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, res, http.StatusOK)
}

func (s *Server) handleWalkIn(w http.ResponseWriter, r *http.Request) {
	var in visitor.Input
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := s.visitors.WalkIn(in)
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, v, http.StatusCreated)
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	res, err := s.visitors.CheckOut(chi.URLParam(r, "id"))
	if err != nil {
		apiServiceError(w, err)
		return
	}
	apiJSON(w, res, http.StatusOK)
}
