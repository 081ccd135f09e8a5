package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/visitor-kiosk/internal/db"
	"github.com/evcraddock/visitor-kiosk/internal/email"
	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/migrate"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type recordingMailer struct {
	sent []email.Message
}

func (m *recordingMailer) IsConfigured() bool { return true }

func (m *recordingMailer) Send(to []string, msg email.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

// testAPIServer creates a test server and returns the server, db, and a valid bearer token.
func testAPIServer(t *testing.T, cfg Config) (*Server, *sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testNow }
	}
	srv, err := NewServer(d, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	rawKey, _, err := srv.APIKeys().Create("test")
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	return srv, d, rawKey
}

func apiRequest(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	reqBody := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func validInput() visitor.Input {
	return visitor.Input{
		Name:        "John Smith",
		Company:     "Acme",
		Email:       "john@acme.com",
		Phone:       "+15551234567",
		HostName:    "Jane Doe",
		HostEmail:   "jane@example.com",
		ArrivalDate: "2026-10-20",
		ArrivalTime: "10:00",
	}
}

func registerVisitor(t *testing.T, srv *Server, key string) *visitor.Registration {
	t.Helper()
	w := apiRequest(t, srv, "POST", "/api/visitors", key, validInput())
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
	var reg visitor.Registration
	decode(t, w, &reg)
	return &reg
}

func TestHealthIsPublic(t *testing.T) {
	srv, _, _ := testAPIServer(t, Config{})
	w := apiRequest(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	srv, _, _ := testAPIServer(t, Config{})

	if w := apiRequest(t, srv, "GET", "/api/visitors", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d", w.Code)
	}
	if w := apiRequest(t, srv, "GET", "/api/visitors", "vk_wrong", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d", w.Code)
	}
}

func TestRegisterAndGet(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})

	reg := registerVisitor(t, srv, key)
	if reg.Visitor.Status != visitor.StatusPreRegistered {
		t.Errorf("status = %q", reg.Visitor.Status)
	}
	if reg.QRPayload == "" {
		t.Error("expected QR payload")
	}

	w := apiRequest(t, srv, "GET", "/api/visitors/"+reg.Visitor.ID, key, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var v visitor.Visitor
	decode(t, w, &v)
	if v.Name != "John Smith" || v.QRPayload == nil || *v.QRPayload != reg.QRPayload {
		t.Errorf("visitor = %+v", v)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})

	in := validInput()
	in.Email = "not-an-email"
	in.ArrivalDate = "2026-10-18"
	w := apiRequest(t, srv, "POST", "/api/visitors", key, in)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &resp)
	if resp.Fields["email"] == "" || resp.Fields["arrival_date"] == "" {
		t.Errorf("fields = %v", resp.Fields)
	}

	list := apiRequest(t, srv, "GET", "/api/visitors", key, nil)
	var visitors []*visitor.Visitor
	decode(t, list, &visitors)
	if len(visitors) != 0 {
		t.Errorf("got %d visitors after failed registration", len(visitors))
	}
}

func TestRegisterInvalidJSON(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})

	req := httptest.NewRequest("POST", "/api/visitors", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+key)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCheckInFlow(t *testing.T) {
	mailer := &recordingMailer{}
	srv, _, key := testAPIServer(t, Config{Mailer: mailer})
	reg := registerVisitor(t, srv, key)

	w := apiRequest(t, srv, "POST", "/api/checkin", key, map[string]string{"payload": reg.QRPayload})
	if w.Code != http.StatusOK {
		t.Fatalf("check in status = %d: %s", w.Code, w.Body.String())
	}
	var res visitor.Result
	decode(t, w, &res)
	if res.AlreadyDone || res.Visitor.BadgeNumber == nil || *res.Visitor.BadgeNumber != "V001" {
		t.Errorf("result = %+v", res)
	}

	w = apiRequest(t, srv, "POST", "/api/checkin", key, map[string]string{"id": reg.Visitor.ID})
	decode(t, w, &res)
	if !res.AlreadyDone {
		t.Error("expected repeated check-in to be a no-op")
	}

	w = apiRequest(t, srv, "POST", "/api/visitors/"+reg.Visitor.ID+"/checkout", key, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("check out status = %d", w.Code)
	}
	decode(t, w, &res)
	if res.Visitor.Status != visitor.StatusCheckedOut || res.Visitor.CheckOutTime == nil {
		t.Errorf("result = %+v", res.Visitor)
	}

	w = apiRequest(t, srv, "POST", "/api/checkin", key, map[string]string{"id": reg.Visitor.ID})
	if w.Code != http.StatusConflict {
		t.Errorf("check in after checkout status = %d, want 409", w.Code)
	}

	if len(mailer.sent) != 2 {
		t.Errorf("sent %d emails, want arrival and departure", len(mailer.sent))
	}

	w = apiRequest(t, srv, "GET", "/api/notifications", key, nil)
	var entries []*notify.Entry
	decode(t, w, &entries)
	if len(entries) != 2 {
		t.Fatalf("got %d notifications, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Status != notify.StatusSent {
			t.Errorf("entry %s status = %q", e.Kind, e.Status)
		}
	}
}

func TestCheckInErrors(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	reg := registerVisitor(t, srv, key)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"empty body", map[string]string{}, http.StatusBadRequest},
		{"garbage payload", map[string]string{"payload": "not json"}, http.StatusBadRequest},
		{"unknown id in payload", map[string]string{"payload": `{"v":1,"id":"01UNKNOWN"}`}, http.StatusNotFound},
		{"unknown id", map[string]string{"id": "01UNKNOWN"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, "POST", "/api/checkin", key, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	w := apiRequest(t, srv, "GET", "/api/visitors/"+reg.Visitor.ID, key, nil)
	var v visitor.Visitor
	decode(t, w, &v)
	if v.Status != visitor.StatusPreRegistered {
		t.Errorf("status = %q, want unchanged", v.Status)
	}
}

func TestCheckOutPreRegistered(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	reg := registerVisitor(t, srv, key)

	w := apiRequest(t, srv, "POST", "/api/visitors/"+reg.Visitor.ID+"/checkout", key, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestWalkInAndList(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	registerVisitor(t, srv, key)

	in := validInput()
	in.Name = "Walk In"
	in.ArrivalDate = ""
	in.ArrivalTime = ""
	w := apiRequest(t, srv, "POST", "/api/walkin", key, in)
	if w.Code != http.StatusCreated {
		t.Fatalf("walk in status = %d: %s", w.Code, w.Body.String())
	}
	var v visitor.Visitor
	decode(t, w, &v)
	if v.Status != visitor.StatusCheckedIn || v.ArrivalDate != "2026-10-19" {
		t.Errorf("walk-in = %+v", v)
	}

	w = apiRequest(t, srv, "GET", "/api/visitors?status=checked-in", key, nil)
	var visitors []*visitor.Visitor
	decode(t, w, &visitors)
	if len(visitors) != 1 || visitors[0].ID != v.ID {
		t.Errorf("checked-in = %+v", visitors)
	}

	w = apiRequest(t, srv, "GET", "/api/visitors?status=arrived", key, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status filter = %d, want 400", w.Code)
	}
}

func TestDeleteVisitor(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	reg := registerVisitor(t, srv, key)

	if w := apiRequest(t, srv, "DELETE", "/api/visitors/"+reg.Visitor.ID, key, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := apiRequest(t, srv, "DELETE", "/api/visitors/"+reg.Visitor.ID, key, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestVisitorQR(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	reg := registerVisitor(t, srv, key)

	w := apiRequest(t, srv, "GET", "/api/visitors/"+reg.Visitor.ID+"/qr.png", key, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}

	w = apiRequest(t, srv, "GET", "/api/visitors/"+reg.Visitor.ID+"/qr.png?size=5", key, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad size status = %d", w.Code)
	}
}

func TestEmergencyAPI(t *testing.T) {
	mailer := &recordingMailer{}
	srv, _, key := testAPIServer(t, Config{Mailer: mailer, AlertEmails: []string{"security@example.com"}})
	reg := registerVisitor(t, srv, key)
	apiRequest(t, srv, "POST", "/api/checkin", key, map[string]string{"id": reg.Visitor.ID})

	if w := apiRequest(t, srv, "GET", "/api/emergency", key, nil); w.Code != http.StatusNotFound {
		t.Errorf("no active status = %d", w.Code)
	}

	w := apiRequest(t, srv, "POST", "/api/emergency", key, emergency.StartInput{Type: emergency.TypeFire, Location: "Building A"})
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var sess emergency.Session
	decode(t, w, &sess)
	if sess.Severity != emergency.SeverityHigh {
		t.Errorf("severity = %q", sess.Severity)
	}

	if w := apiRequest(t, srv, "POST", "/api/emergency", key, emergency.StartInput{Type: emergency.TypeDrill}); w.Code != http.StatusConflict {
		t.Errorf("second start status = %d", w.Code)
	}
	if w := apiRequest(t, srv, "POST", "/api/emergency", key, map[string]string{"type": "flood"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid type status = %d, want 400", w.Code)
	}

	w = apiRequest(t, srv, "GET", "/api/emergency/rollcall", key, nil)
	var call emergency.RollCall
	decode(t, w, &call)
	if call.Session == nil || len(call.Visitors) != 1 {
		t.Errorf("roll call = %+v", call)
	}

	w = apiRequest(t, srv, "POST", "/api/emergency/resolve", key, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", w.Code)
	}
	if w := apiRequest(t, srv, "POST", "/api/emergency/resolve", key, nil); w.Code != http.StatusNotFound {
		t.Errorf("second resolve status = %d", w.Code)
	}

	w = apiRequest(t, srv, "GET", "/api/emergency/history", key, nil)
	var history []*emergency.Session
	decode(t, w, &history)
	if len(history) != 1 || history[0].Status != emergency.StatusResolved {
		t.Errorf("history = %+v", history)
	}

	// arrival email plus the emergency alert
	if len(mailer.sent) != 2 {
		t.Errorf("sent %d emails, want 2", len(mailer.sent))
	}
}

func TestEmergencyInvalidType(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	w := apiRequest(t, srv, "POST", "/api/emergency", key, map[string]string{"type": "flood"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestImportVisitor(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})

	badge := "V007"
	checkIn := testNow.Add(-time.Hour)
	local := &visitor.Visitor{
		ID:          "01LOCAL",
		Name:        "Mary Ann Jones",
		Company:     "Acme",
		Email:       "mary@acme.com",
		Phone:       "+15551234567",
		HostName:    "Jane Doe",
		ArrivalDate: "2026-10-19",
		ArrivalTime: "08:00",
		Status:      visitor.StatusCheckedIn,
		BadgeNumber: &badge,
		CheckInTime: &checkIn,
		CreatedAt:   testNow.Add(-2 * time.Hour),
	}

	w := apiRequest(t, srv, "POST", "/api/import/visitors", key, migrate.ToRemoteVisitor(local))
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d: %s", w.Code, w.Body.String())
	}

	w = apiRequest(t, srv, "GET", "/api/visitors/01LOCAL", key, nil)
	var v visitor.Visitor
	decode(t, w, &v)
	if v.Name != "Mary Ann Jones" || v.BadgeNumber == nil || *v.BadgeNumber != "V007" {
		t.Errorf("imported = %+v", v)
	}

	if w := apiRequest(t, srv, "POST", "/api/import/visitors", key, migrate.ToRemoteVisitor(local)); w.Code != http.StatusConflict {
		t.Errorf("duplicate import status = %d, want 409", w.Code)
	}

	other := *local
	other.ID = "01OTHER"
	if w := apiRequest(t, srv, "POST", "/api/import/visitors", key, migrate.ToRemoteVisitor(&other)); w.Code != http.StatusConflict {
		t.Errorf("badge clash status = %d, want 409", w.Code)
	}

	bad := migrate.RemoteVisitor{FirstName: "X", Status: "arrived"}
	if w := apiRequest(t, srv, "POST", "/api/import/visitors", key, bad); w.Code != http.StatusBadRequest {
		t.Errorf("invalid import status = %d, want 400", w.Code)
	}
}

func TestImportEmergencySession(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})

	session := &emergency.Session{
		ID:        "01SESSION",
		Type:      emergency.TypeDrill,
		Severity:  emergency.SeverityLow,
		Status:    emergency.StatusActive,
		Location:  "Warehouse",
		StartedAt: testNow,
	}
	w := apiRequest(t, srv, "POST", "/api/import/emergency-sessions", key, migrate.ToRemoteSession(session))
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d: %s", w.Code, w.Body.String())
	}

	w = apiRequest(t, srv, "GET", "/api/emergency", key, nil)
	var active emergency.Session
	decode(t, w, &active)
	if active.ID != "01SESSION" || active.Location != "Warehouse" {
		t.Errorf("active = %+v", active)
	}

	second := *session
	second.ID = "01SECOND"
	if w := apiRequest(t, srv, "POST", "/api/import/emergency-sessions", key, migrate.ToRemoteSession(&second)); w.Code != http.StatusConflict {
		t.Errorf("second active import status = %d, want 409", w.Code)
	}

	invalid := migrate.ToRemoteSession(session)
	invalid.ID = "01BAD"
	invalid.Type = "flood"
	if w := apiRequest(t, srv, "POST", "/api/import/emergency-sessions", key, invalid); w.Code != http.StatusBadRequest {
		t.Errorf("invalid import status = %d, want 400", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _, key := testAPIServer(t, Config{})
	w := apiRequest(t, srv, "GET", "/api/nothing", key, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["error"] == "" {
		t.Error("expected JSON error body")
	}
}
