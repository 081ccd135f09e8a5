// Package client provides an HTTP client for the visitor kiosk REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/migrate"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// Client is an HTTP client for the kiosk API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "server error: " + http.StatusText(e.StatusCode)
}

// CheckInRequest identifies the visitor to check in by scanned payload or ID.
type CheckInRequest struct {
	Payload string `json:"payload,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// ListVisitors returns visitors, optionally filtered by status.
func (c *Client) ListVisitors(ctx context.Context, status visitor.Status) ([]*visitor.Visitor, error) {
	path := "/api/visitors"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}

	var visitors []*visitor.Visitor
	if err := c.get(ctx, path, &visitors); err != nil {
		return nil, err
	}
	return visitors, nil
}

// GetVisitor returns a visitor by ID.
func (c *Client) GetVisitor(ctx context.Context, id string) (*visitor.Visitor, error) {
	var v visitor.Visitor
	if err := c.get(ctx, "/api/visitors/"+url.PathEscape(id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Register pre-registers a visitor.
func (c *Client) Register(ctx context.Context, in visitor.Input) (*visitor.Registration, error) {
	var reg visitor.Registration
	if err := c.post(ctx, "/api/visitors", in, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// CheckIn checks in a visitor.
func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) (*visitor.Result, error) {
	var res visitor.Result
	if err := c.post(ctx, "/api/checkin", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WalkIn registers and checks in a visitor in one step.
func (c *Client) WalkIn(ctx context.Context, in visitor.Input) (*visitor.Visitor, error) {
	var v visitor.Visitor
	if err := c.post(ctx, "/api/walkin", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CheckOut checks out a visitor.
func (c *Client) CheckOut(ctx context.Context, id string) (*visitor.Result, error) {
	var res visitor.Result
	if err := c.post(ctx, "/api/visitors/"+url.PathEscape(id)+"/checkout", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteVisitor removes a visitor record.
func (c *Client) DeleteVisitor(ctx context.Context, id string) error {
	return c.doDelete(ctx, "/api/visitors/"+url.PathEscape(id))
}

// VisitorQR returns the visitor's QR code as PNG bytes.
func (c *Client) VisitorQR(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/visitors/"+url.PathEscape(id)+"/qr.png", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.send(req)
}

// StartEmergency opens an emergency session.
func (c *Client) StartEmergency(ctx context.Context, in emergency.StartInput) (*emergency.Session, error) {
	var s emergency.Session
	if err := c.post(ctx, "/api/emergency", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveEmergency returns the active session.
func (c *Client) ActiveEmergency(ctx context.Context) (*emergency.Session, error) {
	var s emergency.Session
	if err := c.get(ctx, "/api/emergency", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ResolveEmergency closes the active session.
func (c *Client) ResolveEmergency(ctx context.Context) (*emergency.Session, error) {
	var s emergency.Session
	if err := c.post(ctx, "/api/emergency/resolve", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RollCall lists visitors on site.
func (c *Client) RollCall(ctx context.Context) (*emergency.RollCall, error) {
	var rc emergency.RollCall
	if err := c.get(ctx, "/api/emergency/rollcall", &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// Notifications returns the newest notification log entries.
func (c *Client) Notifications(ctx context.Context, limit int) ([]*notify.Entry, error) {
	path := "/api/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var entries []*notify.Entry
	if err := c.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateVisitor imports a migrated visitor, keeping its ID.
func (c *Client) CreateVisitor(ctx context.Context, v migrate.RemoteVisitor) error {
	return c.post(ctx, "/api/import/visitors", v, nil)
}

// CreateEmergencySession imports a migrated emergency session.
func (c *Client) CreateEmergencySession(ctx context.Context, s migrate.RemoteEmergencySession) error {
	return c.post(ctx, "/api/import/emergency-sessions", s, nil)
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

// doDelete performs a DELETE request.
func (c *Client) doDelete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, nil)
}

// do executes a request and decodes a JSON response into result.
func (c *Client) do(req *http.Request, result interface{}) error {
	respBody, err := c.send(req)
	if err != nil {
		return err
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// send executes an HTTP request with the auth header and returns the body
// of a successful response.
func (c *Client) send(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var errResp struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Message = errResp.Error
			apiErr.Fields = errResp.Fields
		}
		return nil, apiErr
	}

	return respBody, nil
}
