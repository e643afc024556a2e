package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/fx-backoffice/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

type BackupRow struct {
	ID                   string              `bigquery:"id"`                      // REQUIRED
	CustomerID           string              `bigquery:"customer_id"`             // REQUIRED
	OldData              bigquery.NullJSON   `bigquery:"old_data"`                // REQUIRED JSON
	NewData              bigquery.NullJSON   `bigquery:"new_data"`                // REQUIRED JSON
	ChangedBy            string              `bigquery:"changed_by"`              // REQUIRED
	ChangedByEmail       bigquery.NullString `bigquery:"changed_by_email"`        // NULLABLE
	ChangedByDisplayName bigquery.NullString `bigquery:"changed_by_display_name"` // NULLABLE
	Reason               string              `bigquery:"reason"`                  // REQUIRED
	CreatedAt            time.Time           `bigquery:"created_at"`              // REQUIRED
}

// Backup decodes the JSON snapshots and converts the row to the domain entry.
func (r BackupRow) Backup() (domain.CustomerBackup, error) {
	b := domain.CustomerBackup{
		ID:                   r.ID,
		CustomerID:           r.CustomerID,
		ChangedBy:            r.ChangedBy,
		ChangedByEmail:       fromNullString(r.ChangedByEmail),
		ChangedByDisplayName: fromNullString(r.ChangedByDisplayName),
		Reason:               r.Reason,
		CreatedAt:            r.CreatedAt,
	}
	if r.OldData.Valid {
		if err := json.Unmarshal([]byte(r.OldData.JSONVal), &b.OldData); err != nil {
			return b, fmt.Errorf("decoding old_data: %w", err)
		}
	}
	if r.NewData.Valid {
		if err := json.Unmarshal([]byte(r.NewData.JSONVal), &b.NewData); err != nil {
			return b, fmt.Errorf("decoding new_data: %w", err)
		}
	}
	return b, nil
}

// InsertBackupWithClient appends an audit trail entry with a DML insert so the
// row is immediately visible to ListBackups.
func InsertBackupWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, b *domain.CustomerBackup) error {
	if b.CustomerID == "" {
		return fmt.Errorf("InsertBackup: customer_id is required")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	oldData, err := json.Marshal(b.OldData)
	if err != nil {
		return fmt.Errorf("InsertBackup: encoding old_data: %w", err)
	}
	newData, err := json.Marshal(b.NewData)
	if err != nil {
		return fmt.Errorf("InsertBackup: encoding new_data: %w", err)
	}

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			id,
			customer_id,
			old_data,
			new_data,
			changed_by,
			changed_by_email,
			changed_by_display_name,
			reason,
			created_at
		)
		VALUES (
			@id,
			@customer_id,
			PARSE_JSON(@old_data),
			PARSE_JSON(@new_data),
			@changed_by,
			@changed_by_email,
			@changed_by_display_name,
			@reason,
			@created_at
		)
	`, ds.Table(backupsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: b.ID},
		{Name: "customer_id", Value: b.CustomerID},
		{Name: "old_data", Value: string(oldData)},
		{Name: "new_data", Value: string(newData)},
		{Name: "changed_by", Value: b.ChangedBy},
		{Name: "changed_by_email", Value: toNullString(b.ChangedByEmail)},
		{Name: "changed_by_display_name", Value: toNullString(b.ChangedByDisplayName)},
		{Name: "reason", Value: b.Reason},
		{Name: "created_at", Value: b.CreatedAt},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertBackup: %w", err)
	}
	return nil
}

// ListBackupsWithClient reads a customer's entries created at or after since,
// newest first.
func ListBackupsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, customerID string, since time.Time) ([]domain.CustomerBackup, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			id,
			customer_id,
			old_data,
			new_data,
			changed_by,
			changed_by_email,
			changed_by_display_name,
			reason,
			created_at
		FROM %s
		WHERE customer_id = @customer_id
		  AND created_at >= @since
		ORDER BY created_at DESC
	`, ds.Table(backupsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "customer_id", Value: customerID},
		{Name: "since", Value: since},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBackups: query read: %w", err)
	}

	var backups []domain.CustomerBackup
	for {
		var row BackupRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBackups: iter next: %w", err)
		}
		b, err := row.Backup()
		if err != nil {
			return nil, fmt.Errorf("ListBackups: backup %s: %w", row.ID, err)
		}
		backups = append(backups, b)
	}

	return backups, nil
}
