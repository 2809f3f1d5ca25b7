package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/shopdesk/internal/visit"
)

const maxBodyBytes = 1 << 20

// handleAPIVisits routes /api/visits requests.
func (s *Server) handleAPIVisits(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/visits")
	path = strings.Trim(path, "/")

	switch {
	// /api/visits: list or add
	case path == "":
		switch r.Method {
		case http.MethodGet:
			s.apiListVisits(w, r)
		case http.MethodPost:
			s.apiAddVisit(w, r)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}

	// /api/visits/active and /api/visits/overdue
	case path == "active" || path == "overdue":
		if r.Method != http.MethodGet {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if path == "active" {
			apiJSON(w, s.store.Active(), http.StatusOK)
		} else {
			apiJSON(w, s.store.Overdue(), http.StatusOK)
		}

	// /api/visits/{id}/left
	case strings.HasSuffix(path, "/left"):
		if r.Method != http.MethodPost {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.apiMarkLeft(w, r, strings.TrimSuffix(path, "/left"))

	// /api/visits/{id}/expected-leave
	case strings.HasSuffix(path, "/expected-leave"):
		if r.Method != http.MethodPost {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.apiUpdateExpectedLeave(w, r, strings.TrimSuffix(path, "/expected-leave"))

	// /api/visits/{id}
	case !strings.Contains(path, "/"):
		if r.Method != http.MethodGet {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		v, err := s.store.Get(path)
		if err != nil {
			storeError(w, err)
			return
		}
		apiJSON(w, v, http.StatusOK)

	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

// apiListVisits returns visits, optionally filtered by status and type.
func (s *Server) apiListVisits(w http.ResponseWriter, r *http.Request) {
	opts := visit.ListOptions{}
	if st := r.URL.Query().Get("status"); st != "" {
		status, err := visit.ParseStatus(st)
		if err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Status = status
	}
	if vt := r.URL.Query().Get("type"); vt != "" {
		t, err := visit.ParseVisitType(vt)
		if err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.VisitType = t
	}

	apiJSON(w, s.store.List(opts), http.StatusOK)
}

// apiAddVisit records a customer arriving at the shop.
func (s *Server) apiAddVisit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID      string              `json:"customer_id"`
		CustomerName    string              `json:"customer_name"`
		VisitType       string              `json:"visit_type"`
		Service         string              `json:"service"`
		ArrivedAt       string              `json:"arrived_at"`
		ExpectedLeaveAt string              `json:"expected_leave_at"`
		Location        string              `json:"location"`
		Notes           string              `json:"notes"`
		SalesDetails    *visit.SalesDetails `json:"sales_details"`
	}
	if err := decodeBody(r, &req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		apiError(w, "customer_name is required", http.StatusBadRequest)
		return
	}
	visitType, err := visit.ParseVisitType(req.VisitType)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	in := visit.NewVisit{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		VisitType:    visitType,
		Service:      req.Service,
		Location:     req.Location,
		Notes:        req.Notes,
		SalesDetails: req.SalesDetails,
	}
	if req.ArrivedAt != "" {
		if in.ArrivedAt, err = visit.ParseInstant(req.ArrivedAt); err != nil {
			apiError(w, "arrived_at: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.ExpectedLeaveAt != "" {
		t, err := visit.ParseInstant(req.ExpectedLeaveAt)
		if err != nil {
			apiError(w, "expected_leave_at: "+err.Error(), http.StatusBadRequest)
			return
		}
		in.ExpectedLeaveAt = &t
	}

	v, err := s.store.Add(in)
	if err != nil {
		storeError(w, err)
		return
	}

	apiJSON(w, v, http.StatusCreated)
}

// apiMarkLeft records that a customer left. The body is optional.
func (s *Server) apiMarkLeft(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		LeftAt string `json:"left_at"`
	}
	if err := decodeBody(r, &req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var leftAt time.Time
	if req.LeftAt != "" {
		var err error
		if leftAt, err = visit.ParseInstant(req.LeftAt); err != nil {
			apiError(w, "left_at: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	v, err := s.store.MarkLeft(id, leftAt)
	if err != nil {
		storeError(w, err)
		return
	}

	apiJSON(w, v, http.StatusOK)
}

// apiUpdateExpectedLeave sets or shifts a visit's expected leave time.
func (s *Server) apiUpdateExpectedLeave(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		ExpectedLeaveAt string `json:"expected_leave_at"`
		AddMinutes      *int   `json:"add_minutes"`
	}
	if err := decodeBody(r, &req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var u visit.LeaveUpdate
	switch {
	case req.ExpectedLeaveAt != "" && req.AddMinutes != nil:
		apiError(w, "use either expected_leave_at or add_minutes, not both", http.StatusBadRequest)
		return
	case req.AddMinutes != nil:
		u = visit.AddMinutes(*req.AddMinutes)
	case req.ExpectedLeaveAt != "":
		t, err := visit.ParseInstant(req.ExpectedLeaveAt)
		if err != nil {
			apiError(w, "expected_leave_at: "+err.Error(), http.StatusBadRequest)
			return
		}
		u = visit.LeaveAt(t)
	default:
		apiError(w, "expected_leave_at or add_minutes is required", http.StatusBadRequest)
		return
	}

	v, err := s.store.UpdateExpectedLeave(id, u)
	if err != nil {
		storeError(w, err)
		return
	}

	apiJSON(w, v, http.StatusOK)
}

// handleAPIAlerts returns the current alerts.
func (s *Server) handleAPIAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	apiJSON(w, s.store.Alerts(), http.StatusOK)
}

// handleAPIDashboard returns every derived collection from one store state.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	apiJSON(w, s.store.Snapshot(), http.StatusOK)
}

// Estimate is the response from GET /api/estimate.
type Estimate struct {
	VisitType       visit.VisitType `json:"visit_type"`
	Service         string          `json:"service,omitempty"`
	ArrivedAt       time.Time       `json:"arrived_at"`
	ExpectedLeaveAt time.Time       `json:"expected_leave_at"`
	Minutes         int             `json:"minutes"`
}

// handleAPIEstimate previews the default expected leave time.
func (s *Server) handleAPIEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	visitType, err := visit.ParseVisitType(q.Get("type"))
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	arrivedAt := s.store.Now().UTC()
	if a := q.Get("arrived_at"); a != "" {
		if arrivedAt, err = visit.ParseInstant(a); err != nil {
			apiError(w, "arrived_at: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	service := strings.TrimSpace(q.Get("service"))
	expected, err := visit.Estimate(visitType, service, arrivedAt)
	if err != nil {
		apiError(w, "expected_leave_at: "+err.Error(), http.StatusBadRequest)
		return
	}
	d := visit.ExpectedDuration(visitType, service)
	apiJSON(w, Estimate{
		VisitType:       visitType,
		Service:         service,
		ArrivedAt:       arrivedAt,
		ExpectedLeaveAt: expected,
		Minutes:         int(d / time.Minute),
	}, http.StatusOK)
}

// storeError maps store errors to HTTP status codes.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, visit.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, visit.ErrAlreadyLeft):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, visit.ErrInvalidTime),
		errors.Is(err, visit.ErrInvalidVisitType),
		errors.Is(err, visit.ErrMissingCustomer):
		apiError(w, err.Error(), http.StatusBadRequest)
	default:
		apiError(w, err.Error(), http.StatusInternalServerError)
	}
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
