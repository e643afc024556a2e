package domain

import (
	"time"
)

// CustomerStatus is the lifecycle flag shown on the customer profile.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
)

// Valid reports whether s is one of the known statuses.
func (s CustomerStatus) Valid() bool {
	return s == CustomerActive || s == CustomerInactive
}

// Customer is the canonical customer record as stored in the customers table.
// It is mutated only through the editor package.
type Customer struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Phones            []string       `json:"phones"`
	Email             *string        `json:"email,omitempty"`
	Status            CustomerStatus `json:"status"`
	Notes             *string        `json:"notes,omitempty"`
	EnabledCurrencies []string       `json:"enabled_currencies,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         *time.Time     `json:"updated_at,omitempty"`
}

// Clone returns a deep copy so snapshots never alias the live record.
func (c Customer) Clone() Customer {
	out := c
	out.Phones = append([]string(nil), c.Phones...)
	out.EnabledCurrencies = append([]string(nil), c.EnabledCurrencies...)
	if c.Email != nil {
		e := *c.Email
		out.Email = &e
	}
	if c.Notes != nil {
		n := *c.Notes
		out.Notes = &n
	}
	if c.UpdatedAt != nil {
		u := *c.UpdatedAt
		out.UpdatedAt = &u
	}
	return out
}

// LastTouched returns UpdatedAt when set, CreatedAt otherwise.
func (c Customer) LastTouched() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// CustomerPatch is the set of columns written by an edit or a restore.
// Nil Email/Notes clear the column.
type CustomerPatch struct {
	Name      string
	Phones    []string
	Email     *string
	Status    CustomerStatus
	Notes     *string
	UpdatedAt time.Time
}

// Apply returns c with the patch applied. Identity and creation time are kept.
func (p CustomerPatch) Apply(c Customer) Customer {
	out := c.Clone()
	out.Name = p.Name
	out.Phones = append([]string(nil), p.Phones...)
	out.Email = copyString(p.Email)
	out.Status = p.Status
	out.Notes = copyString(p.Notes)
	updated := p.UpdatedAt
	out.UpdatedAt = &updated
	return out
}

// PatchFromCustomer builds the patch that turns any record into c.
func PatchFromCustomer(c Customer, now time.Time) CustomerPatch {
	return CustomerPatch{
		Name:      c.Name,
		Phones:    append([]string(nil), c.Phones...),
		Email:     copyString(c.Email),
		Status:    c.Status,
		Notes:     copyString(c.Notes),
		UpdatedAt: now,
	}
}

// CustomerForm is the raw, untrimmed edit form submitted by an operator.
type CustomerForm struct {
	Name   string         `json:"name"`
	Phones []string       `json:"phones"`
	Email  string         `json:"email"`
	Status CustomerStatus `json:"status"`
	Notes  string         `json:"notes"`
}

// FormFromCustomer pre-fills an edit form the way the profile screen does:
// an empty phone list becomes a single blank field.
func FormFromCustomer(c Customer) CustomerForm {
	phones := append([]string(nil), c.Phones...)
	if len(phones) == 0 {
		phones = []string{""}
	}
	form := CustomerForm{
		Name:   c.Name,
		Phones: phones,
		Status: c.Status,
	}
	if c.Email != nil {
		form.Email = *c.Email
	}
	if c.Notes != nil {
		form.Notes = *c.Notes
	}
	return form
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
