package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/profile"
)

const (
	ActionAssignmentUpsert = "assignment.upsert"
	ActionAssignmentRevoke = "assignment.revoke"
	ActionAssignmentPrune  = "assignment.prune"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type LogEntry struct {
	Action      string
	SubjectID   *uuid.UUID
	SubjectRole models.Role
	Details     map[string]interface{}
	IPAddress   string
}

type ipKey struct{}

// WithClientIP stores the request's client address for Log to pick up.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// Log records entry with the acting profile taken from ctx. Background
// jobs have no profile and are logged with a null actor.
func (s *Service) Log(ctx context.Context, entry LogEntry) error {
	var actorID *uuid.UUID
	if p := profile.FromContext(ctx); p != nil {
		actorID = &p.ID
	}

	details, _ := json.Marshal(entry.Details)

	if entry.IPAddress == "" {
		entry.IPAddress, _ = ctx.Value(ipKey{}).(string)
	}
	var ip *netip.Addr
	if entry.IPAddress != "" {
		parsed, err := netip.ParseAddr(entry.IPAddress)
		if err == nil {
			ip = &parsed
		}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, subject_id, subject_role, details, ip_address)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		actorID, entry.Action, entry.SubjectID, string(entry.SubjectRole), details, ip,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

type AuditQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Action    string
	SubjectID *uuid.UUID
	Limit     int
	Offset    int
}

func (s *Service) GetAuditLogs(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, actor_id, action, subject_id, COALESCE(subject_role, ''), details, ip_address, created_at
			  FROM audit_logs WHERE true`
	var args []interface{}
	argIdx := 1

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.SubjectID != nil {
		query += fmt.Sprintf(" AND subject_id = $%d", argIdx)
		args = append(args, *q.SubjectID)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.SubjectID, &l.SubjectRole, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
