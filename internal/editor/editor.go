// Package editor mutates customer records through an append-only audit trail.
//
// Every edit or restore is performed in three sequential steps: a backup row
// describing the transition is inserted, the canonical record is updated, and
// the record is read back. A failed backup insert aborts before the record is
// touched. Each step is attempted at most once.
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/dvloznov/fx-backoffice/internal/logger"
	"github.com/dvloznov/fx-backoffice/internal/store"
	"golang.org/x/sync/errgroup"
)

// DefaultBackupWindowDays is how far back ListRecentBackups looks when the
// caller does not ask for a specific window.
const DefaultBackupWindowDays = 30

var (
	// ErrBackupWriteFailed means the backup insert failed and the record was not touched.
	ErrBackupWriteFailed = errors.New("backup write failed")

	// ErrRecordUpdateFailed means the backup row exists but the record update did not apply.
	ErrRecordUpdateFailed = errors.New("record update failed")

	// ErrRefetchFailed means the update applied but the fresh record could not be read.
	ErrRefetchFailed = errors.New("refetch failed")

	// ErrNoChanges is returned by SaveEdit when the form matches the current record.
	ErrNoChanges = errors.New("no changes")
)

// Editor performs audited mutations of customer records.
type Editor struct {
	customers  store.CustomerStore
	backups    store.BackupStore
	now        func() time.Time
	windowDays int
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock overrides the time source used for updated_at, backup created_at
// and the backup window.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		e.now = now
	}
}

// WithBackupWindow sets the default ListRecentBackups window in days.
func WithBackupWindow(days int) Option {
	return func(e *Editor) {
		if days > 0 {
			e.windowDays = days
		}
	}
}

// New creates an Editor over the given stores.
func New(customers store.CustomerStore, backups store.BackupStore, opts ...Option) *Editor {
	e := &Editor{
		customers:  customers,
		backups:    backups,
		now:        func() time.Time { return time.Now().UTC() },
		windowDays: DefaultBackupWindowDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Profile is a customer record together with its recent audit trail.
type Profile struct {
	Customer domain.Customer         `json:"customer"`
	Backups  []domain.CustomerBackup `json:"backups"`
}

// Load reads a customer and its backups from the default window.
func (e *Editor) Load(ctx context.Context, customerID string) (*Profile, error) {
	var (
		customer *domain.Customer
		backups  []domain.CustomerBackup
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := e.customers.GetCustomer(gctx, customerID)
		if err != nil {
			return fmt.Errorf("Load: get customer: %w", err)
		}
		customer = c
		return nil
	})
	g.Go(func() error {
		b, err := e.ListRecentBackups(gctx, customerID, 0)
		if err != nil {
			return fmt.Errorf("Load: %w", err)
		}
		backups = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Profile{Customer: *customer, Backups: backups}, nil
}

// SaveEdit validates form and applies it to the customer, recording a backup
// with reason "edit" first. current is the record the operator was editing.
// A valid form that changes nothing returns ErrNoChanges and writes no backup,
// so every edit that reaches storage leaves exactly one backup row.
func (e *Editor) SaveEdit(ctx context.Context, customerID string, current domain.Customer, form domain.CustomerForm, actor domain.Actor) (*domain.Customer, error) {
	if errs := Validate(form); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if !HasChanges(current, form) {
		return nil, ErrNoChanges
	}

	patch := BuildPatch(current, form, e.now())
	newData := patch.Apply(current)
	newData.ID = customerID

	return e.mutate(ctx, customerID, current, newData, patch, actor, domain.BackupReasonEdit)
}

// RestoreFromBackup returns the customer to the state recorded as the old
// data of chosen. The restore itself is audited with reason "restore".
// A snapshot that would not pass Validate, such as one taken before the
// customer had a phone, is refused with *ValidationError and nothing is written.
func (e *Editor) RestoreFromBackup(ctx context.Context, customerID string, current domain.Customer, chosen domain.CustomerBackup, actor domain.Actor) (*domain.Customer, error) {
	if chosen.CustomerID != customerID {
		return nil, &ValidationError{Fields: ValidationErrors{
			FieldBackup: fmt.Sprintf("backup %s belongs to another customer", chosen.ID),
		}}
	}
	if errs := Validate(domain.FormFromCustomer(chosen.OldData)); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	patch := domain.PatchFromCustomer(chosen.OldData, e.now())
	newData := chosen.OldData.Clone()

	return e.mutate(ctx, customerID, current, newData, patch, actor, domain.BackupReasonRestore)
}

// ListRecentBackups returns the customer's backups created within the last
// sinceDays days, newest first. sinceDays <= 0 selects the default window.
func (e *Editor) ListRecentBackups(ctx context.Context, customerID string, sinceDays int) ([]domain.CustomerBackup, error) {
	if sinceDays <= 0 {
		sinceDays = e.windowDays
	}
	since := e.now().AddDate(0, 0, -sinceDays)

	backups, err := e.backups.ListBackups(ctx, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("ListRecentBackups: list backups: %w", err)
	}
	return backups, nil
}

func (e *Editor) mutate(ctx context.Context, customerID string, current, newData domain.Customer, patch domain.CustomerPatch, actor domain.Actor, reason string) (*domain.Customer, error) {
	log := logger.ForActor(logger.FromContext(ctx), actor.ID, actor.Label()).With().
		Str("customer_id", customerID).
		Str("reason", reason).
		Logger()

	backup := &domain.CustomerBackup{
		CustomerID:           customerID,
		OldData:              current.Clone(),
		NewData:              newData,
		ChangedBy:            actor.ID,
		ChangedByEmail:       optional(actor.Email),
		ChangedByDisplayName: optional(displayName(actor)),
		Reason:               reason,
		CreatedAt:            patch.UpdatedAt,
	}

	log.Debug().Msg("Inserting customer backup")
	if err := e.backups.InsertBackup(ctx, backup); err != nil {
		log.Error().Err(err).Msg("Backup insert failed, record left unchanged")
		return nil, fmt.Errorf("%s customer %s: %w: %w", reason, customerID, ErrBackupWriteFailed, err)
	}

	log.Debug().Str("backup_id", backup.ID).Msg("Updating customer")
	if err := e.customers.UpdateCustomer(ctx, customerID, patch); err != nil {
		log.Error().Err(err).Str("backup_id", backup.ID).Msg("Customer update failed after backup was written")
		return nil, fmt.Errorf("%s customer %s: %w: %w", reason, customerID, ErrRecordUpdateFailed, err)
	}

	fresh, err := e.customers.GetCustomer(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Msg("Customer refetch failed after update")
		return nil, fmt.Errorf("%s customer %s: %w: %w", reason, customerID, ErrRefetchFailed, err)
	}

	log.Info().Str("backup_id", backup.ID).Msg("Customer updated")
	return fresh, nil
}

// BuildPatch turns a validated form into the columns to write: strings are
// trimmed, blank phones dropped and blank email or notes cleared. An empty
// form status keeps the current one.
func BuildPatch(current domain.Customer, form domain.CustomerForm, now time.Time) domain.CustomerPatch {
	status := form.Status
	if status == "" {
		status = current.Status
	}
	return domain.CustomerPatch{
		Name:      strings.TrimSpace(form.Name),
		Phones:    cleanPhones(form.Phones),
		Email:     optional(strings.TrimSpace(form.Email)),
		Status:    status,
		Notes:     optional(strings.TrimSpace(form.Notes)),
		UpdatedAt: now,
	}
}

// HasChanges reports whether saving form would change any edited column of current.
func HasChanges(current domain.Customer, form domain.CustomerForm) bool {
	patch := BuildPatch(current, form, time.Time{})
	return patch.Name != current.Name ||
		!slices.Equal(patch.Phones, current.Phones) ||
		deref(patch.Email) != deref(current.Email) ||
		patch.Status != current.Status ||
		deref(patch.Notes) != deref(current.Notes)
}

func cleanPhones(phones []string) []string {
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// displayName falls back to the email, then the id.
func displayName(a domain.Actor) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Label()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
