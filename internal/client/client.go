// Package client provides an HTTP client for the shopdesk REST API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evcraddock/shopdesk/internal/visit"
	"github.com/evcraddock/shopdesk/internal/web"
)

// Client is an HTTP client for the shopdesk API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AddVisitRequest is the body of POST /api/visits. Times are sent as
// entered and validated by the server.
type AddVisitRequest struct {
	CustomerID      string              `json:"customer_id,omitempty"`
	CustomerName    string              `json:"customer_name"`
	VisitType       string              `json:"visit_type"`
	Service         string              `json:"service,omitempty"`
	ArrivedAt       string              `json:"arrived_at,omitempty"`
	ExpectedLeaveAt string              `json:"expected_leave_at,omitempty"`
	Location        string              `json:"location,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	SalesDetails    *visit.SalesDetails `json:"sales_details,omitempty"`
}

// ListOptions controls filtering for ListVisits.
type ListOptions struct {
	Status string // Active, Overdue, Completed (empty = all)
	Type   string // Ask, Service, Sales (empty = all)
}

// AddVisit records a new arrival.
func (c *Client) AddVisit(req AddVisitRequest) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.post("/api/visits", req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVisit returns a single visit.
func (c *Client) GetVisit(id string) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.get("/api/visits/"+url.PathEscape(id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVisits returns visits, newest first, optionally filtered.
func (c *Client) ListVisits(opts ListOptions) ([]visit.Visit, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Type != "" {
		params.Set("type", opts.Type)
	}
	path := "/api/visits"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var visits []visit.Visit
	if err := c.get(path, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// MarkLeft records that a customer left. An empty leftAt means now.
func (c *Client) MarkLeft(id, leftAt string) (*visit.Visit, error) {
	body := map[string]string{}
	if leftAt != "" {
		body["left_at"] = leftAt
	}
	var v visit.Visit
	if err := c.post("/api/visits/"+url.PathEscape(id)+"/left", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ExtendVisit shifts a visit's expected leave time by minutes.
func (c *Client) ExtendVisit(id string, minutes int) (*visit.Visit, error) {
	body := map[string]int{"add_minutes": minutes}
	var v visit.Visit
	if err := c.post("/api/visits/"+url.PathEscape(id)+"/expected-leave", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SetExpectedLeave replaces a visit's expected leave time.
func (c *Client) SetExpectedLeave(id, at string) (*visit.Visit, error) {
	body := map[string]string{"expected_leave_at": at}
	var v visit.Visit
	if err := c.post("/api/visits/"+url.PathEscape(id)+"/expected-leave", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Alerts returns the current alerts.
func (c *Client) Alerts() ([]visit.Alert, error) {
	var alerts []visit.Alert
	if err := c.get("/api/alerts", &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Dashboard returns every derived collection at once.
func (c *Client) Dashboard() (*visit.Snapshot, error) {
	var snap visit.Snapshot
	if err := c.get("/api/dashboard", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Estimate previews the default expected leave time for a visit.
func (c *Client) Estimate(visitType, service, arrivedAt string) (*web.Estimate, error) {
	params := url.Values{}
	params.Set("type", visitType)
	if service != "" {
		params.Set("service", service)
	}
	if arrivedAt != "" {
		params.Set("arrived_at", arrivedAt)
	}

	var e web.Estimate
	if err := c.get("/api/estimate?"+params.Encode(), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Health checks that the server is reachable.
func (c *Client) Health() error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// APIError is returned for 4xx and 5xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}
