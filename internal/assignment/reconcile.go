package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/audit"
	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
)

// ReconcileMode selects what Reconcile does with out-of-scope grants.
type ReconcileMode string

const (
	// ReconcileModeReport only reports out-of-scope regions.
	ReconcileModeReport ReconcileMode = "report"
	// ReconcileModePrune rewrites assignments without their out-of-scope
	// regions and deletes assignments left empty.
	ReconcileModePrune ReconcileMode = "prune"
)

func ParseReconcileMode(s string) (ReconcileMode, error) {
	switch m := ReconcileMode(s); m {
	case ReconcileModeReport, ReconcileModePrune:
		return m, nil
	}
	return "", fmt.Errorf("unknown reconcile mode %q", s)
}

// Finding actions.
const (
	ActionReported = "reported"
	ActionPruned   = "pruned"
	ActionRevoked  = "revoked"
	ActionConflict = "conflict"
)

type Finding struct {
	UserID     uuid.UUID   `json:"user_id"`
	Role       models.Role `json:"role"`
	OutOfScope []string    `json:"out_of_scope"`
	Action     string      `json:"action"`
}

type ReconcileReport struct {
	Mode     ReconcileMode `json:"mode"`
	Checked  int           `json:"checked"`
	Findings []Finding     `json:"findings"`
}

type coverage map[string]bool

// Reconcile re-checks every grant against its manager's current coverage.
// Sub-general cities must still exist in the table. An hr-general's talukas
// must lie in the cities of the sub-general who granted them, and a sales
// or washer user's talukas in the granting hr-general's talukas. Grants made
// by admin are checked against the table only. Rows with no recorded
// grantor are checked against the union of every manager of the superior
// role. Prunes cascade: a pruned hr-general's field users are checked
// against the pruned set.
func (e *Engine) Reconcile(ctx context.Context, mode ReconcileMode) (*ReconcileReport, error) {
	report := &ReconcileReport{Mode: mode, Findings: []Finding{}}
	regions := e.resolver.Regions()
	profiles := make(map[uuid.UUID]*models.Profile)

	everything := make(coverage)
	for _, tk := range regions.AllTalukas() {
		everything[tk] = true
	}

	subs, err := e.store.ListByRole(ctx, models.RoleSubGeneral)
	if err != nil {
		return nil, rbac.WrapStore("list", err)
	}
	subCover := make(map[uuid.UUID]coverage, len(subs))
	subUnion := make(coverage)
	for _, a := range subs {
		report.Checked++
		var keep, out []string
		for _, c := range a.AssignedCities {
			if regions.HasCity(c) {
				keep = append(keep, c)
			} else {
				out = append(out, c)
			}
		}
		effective := a.AssignedCities
		if len(out) > 0 {
			f, applied := e.resolve(ctx, a, mode, keep, a.AssignedTalukas, out)
			report.Findings = append(report.Findings, f)
			if applied {
				effective = keep
			}
		}
		cov := make(coverage)
		for _, c := range effective {
			for _, tk := range regions.TalukasOf(c) {
				cov[tk] = true
				subUnion[tk] = true
			}
		}
		subCover[a.UserID] = cov
	}

	hrs, err := e.store.ListByRole(ctx, models.RoleHRGeneral)
	if err != nil {
		return nil, rbac.WrapStore("list", err)
	}
	hrCover := make(map[uuid.UUID]coverage, len(hrs))
	hrUnion := make(coverage)
	for _, a := range hrs {
		report.Checked++
		cov, err := e.grantorCoverage(ctx, a, models.RoleSubGeneral, subCover, subUnion, everything, profiles)
		if err != nil {
			return nil, err
		}
		effective := e.checkTalukas(ctx, report, a, mode, cov)
		own := make(coverage, len(effective))
		for _, tk := range effective {
			own[tk] = true
			hrUnion[tk] = true
		}
		hrCover[a.UserID] = own
	}

	for _, role := range []models.Role{models.RoleSales, models.RoleWasher} {
		rows, err := e.store.ListByRole(ctx, role)
		if err != nil {
			return nil, rbac.WrapStore("list", err)
		}
		for _, a := range rows {
			report.Checked++
			cov, err := e.grantorCoverage(ctx, a, models.RoleHRGeneral, hrCover, hrUnion, everything, profiles)
			if err != nil {
				return nil, err
			}
			e.checkTalukas(ctx, report, a, mode, cov)
		}
	}

	slog.Info("reconcile finished", "mode", mode, "checked", report.Checked, "findings", len(report.Findings))
	return report, nil
}

// checkTalukas records a finding for talukas outside cov and returns the
// talukas the row holds afterwards.
func (e *Engine) checkTalukas(ctx context.Context, report *ReconcileReport, a models.Assignment, mode ReconcileMode, cov coverage) []string {
	var keep, out []string
	for _, tk := range a.AssignedTalukas {
		if cov[tk] {
			keep = append(keep, tk)
		} else {
			out = append(out, tk)
		}
	}
	if len(out) == 0 {
		return a.AssignedTalukas
	}
	f, applied := e.resolve(ctx, a, mode, a.AssignedCities, keep, out)
	report.Findings = append(report.Findings, f)
	if applied {
		return keep
	}
	return a.AssignedTalukas
}

func (e *Engine) grantorCoverage(
	ctx context.Context,
	a models.Assignment,
	superior models.Role,
	byManager map[uuid.UUID]coverage,
	union, everything coverage,
	profiles map[uuid.UUID]*models.Profile,
) (coverage, error) {
	if a.AssignedBy == nil {
		return union, nil
	}

	p, seen := profiles[*a.AssignedBy]
	if !seen {
		var err error
		p, err = e.dir.GetProfile(ctx, *a.AssignedBy)
		if errors.Is(err, rbac.ErrNotFound) {
			p = nil
		} else if err != nil {
			return nil, err
		}
		profiles[*a.AssignedBy] = p
	}

	switch {
	case p == nil:
		return union, nil
	case p.Role == models.RoleAdmin:
		return everything, nil
	case p.Role == superior:
		return byManager[p.ID], nil
	default:
		// The grantor no longer holds a managing role.
		return coverage{}, nil
	}
}

// resolve acts on one out-of-scope row and reports whether the store now
// holds keepCities/keepTalukas for it.
func (e *Engine) resolve(ctx context.Context, a models.Assignment, mode ReconcileMode, keepCities, keepTalukas, out []string) (Finding, bool) {
	f := Finding{UserID: a.UserID, Role: a.Role, OutOfScope: out, Action: ActionReported}
	if mode != ReconcileModePrune {
		slog.Warn("assignment out of scope", "user_id", a.UserID, "role", a.Role, "out_of_scope", out)
		return f, false
	}

	var err error
	if len(keepCities) == 0 && len(keepTalukas) == 0 {
		f.Action = ActionRevoked
		err = e.store.Delete(ctx, a.UserID, a.Role)
		if errors.Is(err, rbac.ErrNotFound) {
			err = nil
		}
	} else {
		f.Action = ActionPruned
		next := a
		next.AssignedCities = nonNilSlice(keepCities)
		next.AssignedTalukas = nonNilSlice(keepTalukas)
		_, err = e.store.Upsert(ctx, next, Version(a.Version))
	}

	if errors.Is(err, rbac.ErrConflict) {
		slog.Warn("assignment changed during reconcile, skipped", "user_id", a.UserID, "role", a.Role)
		f.Action = ActionConflict
		return f, false
	}
	if err != nil {
		slog.Error("reconcile write failed", "user_id", a.UserID, "role", a.Role, "error", err)
		f.Action = ActionReported
		return f, false
	}

	slog.Info("assignment pruned", "user_id", a.UserID, "role", a.Role, "removed", out, "action", f.Action)
	if e.cache != nil {
		if err := e.cache.InvalidatePermissions(ctx, a.UserID); err != nil {
			slog.Warn("invalidate permissions failed", "user_id", a.UserID, "error", err)
		}
	}
	if e.auditor != nil {
		id := a.UserID
		if err := e.auditor.Log(ctx, audit.LogEntry{
			Action:      audit.ActionAssignmentPrune,
			SubjectID:   &id,
			SubjectRole: a.Role,
			Details: map[string]interface{}{
				"removed":          out,
				"assigned_cities":  nonNilSlice(keepCities),
				"assigned_talukas": nonNilSlice(keepTalukas),
				"revoked":          f.Action == ActionRevoked,
			},
		}); err != nil {
			slog.Warn("audit log failed", "action", audit.ActionAssignmentPrune, "error", err)
		}
	}
	return f, true
}
