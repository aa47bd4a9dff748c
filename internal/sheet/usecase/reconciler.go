package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	itemdomain "github.com/kentsubra71/keystone/internal/item/domain"
	"github.com/kentsubra71/keystone/internal/sheet/domain"
	"github.com/kentsubra71/keystone/internal/sheet/normalize"
	"github.com/kentsubra71/keystone/internal/sheet/repository"
	"github.com/kentsubra71/keystone/pkg/config"

	"github.com/charmbracelet/log"
)

// ReconcileResult summarizes one sheet sync cycle.
type ReconcileResult struct {
	Success     bool     `json:"success"`
	Added       int      `json:"added"`
	Updated     int      `json:"updated"`
	Unchanged   int      `json:"unchanged"`
	Disappeared int      `json:"disappeared"`
	Errors      []string `json:"errors"`
}

func (r *ReconcileResult) fail(err error) (*ReconcileResult, error) {
	r.Success = false
	r.Errors = append(r.Errors, err.Error())
	return r, err
}

// Reconciler diffs the spreadsheet against the stored rows.
type Reconciler struct {
	source domain.RowSource // nil when no sheets credentials are configured
	rows   repository.RowRepository
	owners repository.OwnerRepository
	cfg    config.SheetConfig
	logger *log.Logger
	now    func() time.Time
}

func NewReconciler(
	source domain.RowSource,
	rows repository.RowRepository,
	owners repository.OwnerRepository,
	cfg config.SheetConfig,
	logger *log.Logger,
) *Reconciler {
	return &Reconciler{
		source: source,
		rows:   rows,
		owners: owners,
		cfg:    cfg,
		logger: logger.WithPrefix("SheetSync"),
		now:    time.Now,
	}
}

// sheetRow is one parsed row of the sheet, before normalization.
type sheetRow struct {
	number      int
	commitment  string
	owner       *string
	dueDate     *string
	status      *string
	comments    *string
	fingerprint string
}

// Reconcile runs one sync cycle.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{Errors: []string{}}

	if r.source == nil {
		return result.fail(fmt.Errorf("%w: no Google Sheets credentials", domain.ErrNotConfigured))
	}
	if r.cfg.SpreadsheetID == "" {
		return result.fail(fmt.Errorf("%w: no spreadsheet id", domain.ErrNotConfigured))
	}

	readRange := fmt.Sprintf("%s!A%d:Z", r.cfg.SheetName, r.cfg.HeaderRow+1)
	values, err := r.source.GetValues(ctx, r.cfg.SpreadsheetID, readRange)
	if err != nil {
		return result.fail(fmt.Errorf("fetch sheet %s: %w", readRange, err))
	}

	ownerMap, err := r.loadOwnerMap(ctx)
	if err != nil {
		return result.fail(fmt.Errorf("load owner directory: %w", err))
	}

	existing, err := r.rows.ListAll(ctx)
	if err != nil {
		return result.fail(fmt.Errorf("load stored rows: %w", err))
	}

	byRowNumber := make(map[int]*domain.SourceRow, len(existing))
	legacyByFingerprint := make(map[string][]*domain.SourceRow)
	for _, rec := range existing {
		if rec.RowNumber != nil {
			if _, dup := byRowNumber[*rec.RowNumber]; !dup {
				byRowNumber[*rec.RowNumber] = rec
			}
			continue
		}
		legacyByFingerprint[rec.Fingerprint] = append(legacyByFingerprint[rec.Fingerprint], rec)
	}

	now := r.now()
	claimed := make(map[string]bool, len(existing))

	for _, row := range r.parseRows(values) {
		match := byRowNumber[row.number]
		if match != nil && claimed[match.ID] {
			match = nil
		}
		if match == nil {
			for _, candidate := range legacyByFingerprint[row.fingerprint] {
				if !claimed[candidate.ID] {
					match = candidate
					break
				}
			}
		}

		if match == nil {
			rec := r.buildRecord(row, ownerMap, now)
			if err := r.rows.Create(ctx, rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: insert: %v", row.number, err))
				continue
			}
			claimed[rec.ID] = true
			result.Added++
			continue
		}

		claimed[match.ID] = true

		if match.Fingerprint == row.fingerprint && match.RowNumber != nil && *match.RowNumber == row.number {
			overdue, atRisk := domain.DueFlags(match.DueDate, now)
			if err := r.refreshUnchanged(ctx, match, ownerMap, now, overdue, atRisk); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: touch: %v", row.number, err))
				continue
			}
			result.Unchanged++
			continue
		}

		r.applyRow(match, row, ownerMap, now)
		if err := r.rows.Save(ctx, match); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: update: %v", row.number, err))
			continue
		}
		result.Updated++
	}

	var missing []string
	for _, rec := range existing {
		if claimed[rec.ID] || rec.Status == itemdomain.StatusDone {
			continue
		}
		missing = append(missing, rec.ID)
	}
	result.Disappeared = len(missing)
	if err := r.rows.MarkMissing(ctx, missing, now); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("flag disappeared rows: %v", err))
	}

	result.Success = true
	r.logger.Info("sheet reconciled",
		"added", result.Added,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"disappeared", result.Disappeared,
		"errors", len(result.Errors),
	)
	return result, nil
}

// refreshUnchanged records a sighting of a row whose cells did not change.
// The owner directory may have changed since the last cycle, so the owner
// mapping is recomputed and the full record saved when it differs.
func (r *Reconciler) refreshUnchanged(ctx context.Context, rec *domain.SourceRow, ownerMap map[string]string, now time.Time, overdue, atRisk bool) error {
	ownerEmail, needsMapping := resolveOwner(rec.OwnerLabel, ownerMap)
	if sameOwner(rec.OwnerEmail, ownerEmail) && rec.NeedsOwnerMapping == needsMapping {
		return r.rows.Touch(ctx, rec.ID, now, overdue, atRisk)
	}

	rec.OwnerEmail = ownerEmail
	rec.NeedsOwnerMapping = needsMapping
	rec.LastSeenAt = now
	rec.LastSyncedAt = now
	rec.IsOverdue = overdue
	rec.IsAtRisk = atRisk
	rec.MissingSince = nil
	return r.rows.Save(ctx, rec)
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return strings.EqualFold(*a, *b)
}

func (r *Reconciler) loadOwnerMap(ctx context.Context) (map[string]string, error) {
	if r.owners == nil {
		return map[string]string{}, nil
	}
	entries, err := r.owners.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[strings.ToLower(strings.TrimSpace(e.DisplayName))] = e.Email
	}
	return m, nil
}

func (r *Reconciler) parseRows(values [][]*string) []sheetRow {
	rows := make([]sheetRow, 0, len(values))
	for i, cells := range values {
		commitment := cell(cells, r.cfg.CommitmentCol)
		if commitment == nil || strings.TrimSpace(*commitment) == "" {
			continue
		}
		row := sheetRow{
			number:     r.cfg.HeaderRow + 1 + i,
			commitment: strings.TrimSpace(*commitment),
			owner:      cell(cells, r.cfg.OwnerCol),
			dueDate:    cell(cells, r.cfg.DueDateCol),
			status:     cell(cells, r.cfg.StatusCol),
			comments:   cell(cells, r.cfg.CommentsCol),
		}
		row.fingerprint = normalize.Fingerprint([]*string{
			commitment, row.owner, row.dueDate, row.status, row.comments,
		})
		rows = append(rows, row)
	}
	return rows
}

func (r *Reconciler) buildRecord(row sheetRow, ownerMap map[string]string, now time.Time) *domain.SourceRow {
	rec := &domain.SourceRow{FirstSeenAt: now}
	r.applyRow(rec, row, ownerMap, now)
	return rec
}

// applyRow overwrites every sheet-derived field of rec from row.
func (r *Reconciler) applyRow(rec *domain.SourceRow, row sheetRow, ownerMap map[string]string, now time.Time) {
	ownerEmail, needsMapping := resolveOwner(row.owner, ownerMap)
	status, needsReview := normalize.NormalizeStatus(row.status)
	due := normalize.ParseDueDate(row.dueDate)
	overdue, atRisk := domain.DueFlags(due, now)
	number := row.number

	rec.Commitment = row.commitment
	rec.OwnerLabel = row.owner
	rec.OwnerEmail = ownerEmail
	rec.NeedsOwnerMapping = needsMapping
	rec.DueDate = due
	rec.Status = status
	rec.RawStatus = row.status
	rec.NeedsReview = needsReview
	rec.Comments = row.comments
	rec.RowNumber = &number
	rec.Fingerprint = row.fingerprint
	rec.LastSeenAt = now
	rec.LastSyncedAt = now
	rec.IsOverdue = overdue
	rec.IsAtRisk = atRisk
	rec.MissingSince = nil
}

func resolveOwner(label *string, ownerMap map[string]string) (*string, bool) {
	if label == nil {
		return nil, false
	}
	key := strings.ToLower(strings.TrimSpace(*label))
	if key == "" {
		return nil, false
	}
	if email, ok := ownerMap[key]; ok {
		return &email, false
	}
	return nil, true
}

// cell returns the value at col, or nil when the row is short or the cell blank.
func cell(cells []*string, col int) *string {
	if col < 0 || col >= len(cells) || cells[col] == nil {
		return nil
	}
	v := strings.TrimSpace(*cells[col])
	if v == "" {
		return nil
	}
	return &v
}
