package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/audit"
	"github.com/nikhilbhutani/washgeo/internal/models"
)

type Reconciler interface {
	Reconcile(ctx context.Context, mode assignment.ReconcileMode) (*assignment.ReconcileReport, error)
}

type AuditLister interface {
	GetAuditLogs(ctx context.Context, q audit.AuditQuery) ([]models.AuditLog, error)
}

type AdminHandler struct {
	reconciler Reconciler
	auditLogs  AuditLister
}

func NewAdminHandler(reconciler Reconciler, auditLogs AuditLister) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, auditLogs: auditLogs}
}

// Reconcile runs a pass inline and returns its report. ?mode= defaults to
// report.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	mode := assignment.ReconcileModeReport
	if s := r.URL.Query().Get("mode"); s != "" {
		m, err := assignment.ParseReconcileMode(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		mode = m
	}

	report, err := h.reconciler.Reconcile(r.Context(), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	if h.auditLogs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit log unavailable"})
		return
	}

	q := audit.AuditQuery{
		Action: r.URL.Query().Get("action"),
	}

	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	if s := r.URL.Query().Get("subject_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject_id"})
			return
		}
		q.SubjectID = &id
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.StartDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.EndDate = &t
		}
	}

	logs, err := h.auditLogs.GetAuditLogs(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}
