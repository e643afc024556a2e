package domain

import "time"

// Backup reasons written to customer_backups.reason.
const (
	BackupReasonEdit    = "edit"
	BackupReasonRestore = "restore"
)

// CustomerBackup is one append-only row of the customer audit trail. OldData is
// the record before the change and NewData the record the change produced.
type CustomerBackup struct {
	ID                   string    `json:"id"`
	CustomerID           string    `json:"customer_id"`
	OldData              Customer  `json:"old_data"`
	NewData              Customer  `json:"new_data"`
	ChangedBy            string    `json:"changed_by"`
	ChangedByEmail       *string   `json:"changed_by_email,omitempty"`
	ChangedByDisplayName *string   `json:"changed_by_display_name,omitempty"`
	Reason               string    `json:"reason"`
	CreatedAt            time.Time `json:"created_at"`
}

// Actor identifies who performs a mutation.
type Actor struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Label is the best human-readable identity for logs.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.ID
}
