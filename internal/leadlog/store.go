// Package leadlog keeps an operator audit trail of accepted leads and the
// outcome of their side effects. The CRM stays the system of record.
package leadlog

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
var ErrNotConfigured = errors.New("leadlog: store not configured")

// Capture is one row of the lead capture log.
type Capture struct {
	ID               string    `json:"id"`
	LeadID           string    `json:"leadId"`
	Source           string    `json:"source"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	CompanySize      string    `json:"companySize,omitempty"`
	Intent           string    `json:"intent,omitempty"`
	CRMSynced        bool      `json:"crmSynced"`
	NotificationSent bool      `json:"notificationSent"`
	IPAddress        string    `json:"ipAddress,omitempty"`
	UserAgent        string    `json:"userAgent,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SourceStats aggregates captures for one lead source.
type SourceStats struct {
	Source           string `json:"source"`
	Total            int64  `json:"total"`
	CRMSynced        int64  `json:"crmSynced"`
	NotificationSent int64  `json:"notificationSent"`
}

// storeDB is the subset of pgxpool.Pool used by the store.
type storeDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore writes captures to the lead_captures table.
type PostgresStore struct {
	db storeDB
}

// NewPostgresStore wraps a pgx pool (or any compatible handle).
func NewPostgresStore(db storeDB) *PostgresStore {
	if db == nil {
		panic("leadlog: db required")
	}
	return &PostgresStore{db: db}
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Record inserts a capture. Missing ids and timestamps are filled in.
func (s *PostgresStore) Record(ctx context.Context, c Capture) error {
	if s == nil {
		return ErrNotConfigured
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO lead_captures (id, lead_id, source, name, email, company_size, intent,
			crm_synced, notification_sent, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (lead_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query,
		c.ID,
		c.LeadID,
		c.Source,
		c.Name,
		c.Email,
		c.CompanySize,
		c.Intent,
		c.CRMSynced,
		c.NotificationSent,
		c.IPAddress,
		c.UserAgent,
		c.CreatedAt,
	); err != nil {
		return fmt.Errorf("leadlog: insert failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest captures first, optionally for one source.
func (s *PostgresStore) ListRecent(ctx context.Context, source string, limit int) ([]Capture, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, lead_id, source, name, email, company_size, intent,
			crm_synced, notification_sent, ip_address, user_agent, created_at
		FROM lead_captures
		WHERE ($1 = '' OR source = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("leadlog: list failed: %w", err)
	}
	defer rows.Close()

	captures := make([]Capture, 0, limit)
	for rows.Next() {
		var c Capture
		if err := rows.Scan(
			&c.ID,
			&c.LeadID,
			&c.Source,
			&c.Name,
			&c.Email,
			&c.CompanySize,
			&c.Intent,
			&c.CRMSynced,
			&c.NotificationSent,
			&c.IPAddress,
			&c.UserAgent,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("leadlog: scan failed: %w", err)
		}
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leadlog: rows: %w", err)
	}
	return captures, nil
}

// Stats counts captures per source, optionally since a point in time.
func (s *PostgresStore) Stats(ctx context.Context, since *time.Time) ([]SourceStats, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}

	var start time.Time
	if since != nil {
		start = since.UTC()
	}
	query := `
		SELECT source,
			COUNT(*),
			COUNT(*) FILTER (WHERE crm_synced),
			COUNT(*) FILTER (WHERE notification_sent)
		FROM lead_captures
		WHERE created_at >= $1
		GROUP BY source
		ORDER BY source
	`
	rows, err := s.db.Query(ctx, query, start)
	if err != nil {
		return nil, fmt.Errorf("leadlog: stats failed: %w", err)
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var st SourceStats
		if err := rows.Scan(&st.Source, &st.Total, &st.CRMSynced, &st.NotificationSent); err != nil {
			return nil, fmt.Errorf("leadlog: scan failed: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leadlog: rows: %w", err)
	}
	return stats, nil
}
