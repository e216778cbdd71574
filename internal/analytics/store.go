// Package analytics records one row per API request and aggregates those
// rows, the lead capture log and API key usage into admin reports.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotConfigured is returned by a nil store.
var ErrNotConfigured = errors.New("analytics: store not configured")

// Request is one served API request.
type Request struct {
	ID             string    `json:"id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"statusCode"`
	ResponseTimeMS int64     `json:"responseTimeMs"`
	APIKeyID       string    `json:"apiKeyId,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	Referer        string    `json:"referer,omitempty"`
	RequestSize    int64     `json:"requestSize"`
	ResponseSize   int64     `json:"responseSize"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary aggregates requests over a time range. ErrorRate is the percentage
// of responses with a 4xx or 5xx status.
type Summary struct {
	TotalRequests       int64   `json:"totalRequests"`
	AverageResponseTime float64 `json:"averageResponseTime"`
	ErrorRate           float64 `json:"errorRate"`
}

// EndpointStats is the traffic of one endpoint.
type EndpointStats struct {
	Endpoint        string  `json:"endpoint"`
	Requests        int64   `json:"requests"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// storeDB is the subset of pgxpool.Pool used by the store.
type storeDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps requests in the api_analytics table.
type PostgresStore struct {
	db storeDB
}

// NewPostgresStore wraps a pgx pool (or any compatible handle).
func NewPostgresStore(db storeDB) *PostgresStore {
	if db == nil {
		panic("analytics: db required")
	}
	return &PostgresStore{db: db}
}

// Record inserts a request. Missing ids and timestamps are filled in.
func (s *PostgresStore) Record(ctx context.Context, r Request) error {
	if s == nil {
		return ErrNotConfigured
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO api_analytics (id, endpoint, method, status_code, response_time_ms,
			api_key_id, ip_address, user_agent, referer, request_size, response_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if _, err := s.db.Exec(ctx, query,
		r.ID,
		r.Endpoint,
		r.Method,
		r.StatusCode,
		r.ResponseTimeMS,
		r.APIKeyID,
		r.IPAddress,
		r.UserAgent,
		r.Referer,
		r.RequestSize,
		r.ResponseSize,
		r.CreatedAt,
	); err != nil {
		return fmt.Errorf("analytics: insert failed: %w", err)
	}
	return nil
}

// Summary aggregates requests created in [start, end).
func (s *PostgresStore) Summary(ctx context.Context, start, end time.Time) (Summary, error) {
	if s == nil {
		return Summary{}, ErrNotConfigured
	}
	rows, err := s.db.Query(ctx, `
		SELECT COUNT(*),
			COALESCE(AVG(response_time_ms), 0)::float8,
			COALESCE(100.0 * COUNT(*) FILTER (WHERE status_code >= 400) / NULLIF(COUNT(*), 0), 0)::float8
		FROM api_analytics
		WHERE created_at >= $1 AND created_at < $2
	`, start.UTC(), end.UTC())
	if err != nil {
		return Summary{}, fmt.Errorf("analytics: summary failed: %w", err)
	}
	defer rows.Close()

	var sum Summary
	if rows.Next() {
		if err := rows.Scan(&sum.TotalRequests, &sum.AverageResponseTime, &sum.ErrorRate); err != nil {
			return Summary{}, fmt.Errorf("analytics: scan failed: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("analytics: rows: %w", err)
	}
	return sum, nil
}

// TopEndpoints returns the busiest endpoints in [start, end).
func (s *PostgresStore) TopEndpoints(ctx context.Context, start, end time.Time, limit int) ([]EndpointStats, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.Query(ctx, `
		SELECT endpoint, COUNT(*), COALESCE(AVG(response_time_ms), 0)::float8
		FROM api_analytics
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY endpoint
		ORDER BY COUNT(*) DESC, endpoint
		LIMIT $3
	`, start.UTC(), end.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top endpoints failed: %w", err)
	}
	defer rows.Close()

	stats := []EndpointStats{}
	for rows.Next() {
		var st EndpointStats
		if err := rows.Scan(&st.Endpoint, &st.Requests, &st.AvgResponseTime); err != nil {
			return nil, fmt.Errorf("analytics: scan failed: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: rows: %w", err)
	}
	return stats, nil
}

// CountSuccessful counts 2xx and 3xx responses of one endpoint in [start, end).
func (s *PostgresStore) CountSuccessful(ctx context.Context, endpoint string, start, end time.Time) (int64, error) {
	if s == nil {
		return 0, ErrNotConfigured
	}
	rows, err := s.db.Query(ctx, `
		SELECT COUNT(*)
		FROM api_analytics
		WHERE endpoint = $1 AND status_code < 400
			AND created_at >= $2 AND created_at < $3
	`, endpoint, start.UTC(), end.UTC())
	if err != nil {
		return 0, fmt.Errorf("analytics: count failed: %w", err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("analytics: scan failed: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("analytics: rows: %w", err)
	}
	return n, nil
}

// Recent returns the newest requests first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Request, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, endpoint, method, status_code, response_time_ms, api_key_id,
			ip_address, user_agent, referer, request_size, response_size, created_at
		FROM api_analytics
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: recent failed: %w", err)
	}
	defer rows.Close()

	requests := []Request{}
	for rows.Next() {
		var r Request
		if err := rows.Scan(
			&r.ID,
			&r.Endpoint,
			&r.Method,
			&r.StatusCode,
			&r.ResponseTimeMS,
			&r.APIKeyID,
			&r.IPAddress,
			&r.UserAgent,
			&r.Referer,
			&r.RequestSize,
			&r.ResponseSize,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("analytics: scan failed: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: rows: %w", err)
	}
	return requests, nil
}
