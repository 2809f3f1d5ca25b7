package visit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository keeps a SQLite copy of the visit records so the store can be
// restored after a restart. Status is never written.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a visit repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts or replaces a visit record, keeping its original position.
func (r *Repository) Save(v Visit) error {
	var sales sql.NullString
	if v.SalesDetails != nil {
		data, err := json.Marshal(v.SalesDetails)
		if err != nil {
			return fmt.Errorf("encoding sales details: %w", err)
		}
		sales = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO visits (id, customer_id, customer_name, visit_type, service, arrived_at, expected_leave_at, left_at, location, notes, sales_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     customer_id = excluded.customer_id,
		     customer_name = excluded.customer_name,
		     visit_type = excluded.visit_type,
		     service = excluded.service,
		     arrived_at = excluded.arrived_at,
		     expected_leave_at = excluded.expected_leave_at,
		     left_at = excluded.left_at,
		     location = excluded.location,
		     notes = excluded.notes,
		     sales_json = excluded.sales_json`,
		v.ID, v.CustomerID, v.CustomerName, v.VisitType, v.Service,
		formatTime(v.ArrivedAt), formatTimePtr(v.ExpectedLeaveAt), formatTimePtr(v.LeftAt),
		v.Location, v.Notes, sales,
	)
	if err != nil {
		return fmt.Errorf("saving visit %s: %w", v.ID, err)
	}
	return nil
}

// List returns every stored visit, newest first.
func (r *Repository) List() (visits []Visit, err error) {
	rows, err := r.db.Query(
		`SELECT id, customer_id, customer_name, visit_type, service, arrived_at, expected_leave_at, left_at, location, notes, sales_json
		 FROM visits ORDER BY seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}

	return visits, nil
}

func scanVisit(rows *sql.Rows) (Visit, error) {
	var (
		v              Visit
		arrived        string
		expected, left sql.NullString
		sales          sql.NullString
	)
	if err := rows.Scan(&v.ID, &v.CustomerID, &v.CustomerName, &v.VisitType, &v.Service,
		&arrived, &expected, &left, &v.Location, &v.Notes, &sales); err != nil {
		return Visit{}, fmt.Errorf("scanning visit: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, arrived)
	if err != nil {
		return Visit{}, fmt.Errorf("visit %s: parsing arrived_at: %w", v.ID, err)
	}
	v.ArrivedAt = t

	if v.ExpectedLeaveAt, err = parseTimePtr(expected); err != nil {
		return Visit{}, fmt.Errorf("visit %s: parsing expected_leave_at: %w", v.ID, err)
	}
	if v.LeftAt, err = parseTimePtr(left); err != nil {
		return Visit{}, fmt.Errorf("visit %s: parsing left_at: %w", v.ID, err)
	}

	if sales.Valid {
		var sd SalesDetails
		if err := json.Unmarshal([]byte(sales.String), &sd); err != nil {
			return Visit{}, fmt.Errorf("visit %s: decoding sales details: %w", v.ID, err)
		}
		v.SalesDetails = &sd
	}

	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
