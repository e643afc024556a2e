package editor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dvloznov/fx-backoffice/internal/domain"
)

// Field keys used in ValidationErrors.
const (
	FieldName   = "name"
	FieldPhones = "phones"
	FieldEmail  = "email"
	FieldStatus = "status"
	FieldBackup = "backup"
)

// Validation messages.
const (
	MsgNameRequired  = "name required"
	MsgPhoneRequired = "at least one valid phone required"
	MsgPhoneInvalid  = "invalid phone number"
	MsgEmailInvalid  = "invalid email"
	MsgStatusInvalid = "invalid status"
)

const minPhoneDigits = 8

var (
	// Accepts +1234567890, 1234567890, 123-456-7890, (123) 456-7890, 123.456.7890
	phonePattern    = regexp.MustCompile(`^[+]?[1-9]\d{0,15}$|^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,8}$`)
	phoneSeparators = regexp.MustCompile(`[\s\-().]`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationErrors maps a form field to its error message. Individual phones
// are keyed as "phones[i]" with i the index in the submitted form.
type ValidationErrors map[string]string

// ValidationError is returned by mutations whose input failed validation.
type ValidationError struct {
	Fields ValidationErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PhoneKey is the ValidationErrors key of the i-th phone field.
func PhoneKey(i int) string {
	return fmt.Sprintf("%s[%d]", FieldPhones, i)
}

// Validate checks an edit form. An empty result means the form is valid.
func Validate(form domain.CustomerForm) ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(form.Name) == "" {
		errs[FieldName] = MsgNameRequired
	}

	valid := 0
	for i, p := range form.Phones {
		switch {
		case strings.TrimSpace(p) == "":
		case ValidPhone(p):
			valid++
		default:
			errs[PhoneKey(i)] = MsgPhoneInvalid
		}
	}
	if valid == 0 {
		errs[FieldPhones] = MsgPhoneRequired
	}

	if email := strings.TrimSpace(form.Email); email != "" && !ValidEmail(email) {
		errs[FieldEmail] = MsgEmailInvalid
	}

	if form.Status != "" && !form.Status.Valid() {
		errs[FieldStatus] = MsgStatusInvalid
	}

	return errs
}

// ValidPhone reports whether phone looks like a dialable number once common
// separators are removed.
func ValidPhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	return len(cleaned) >= minPhoneDigits && phonePattern.MatchString(cleaned)
}

// ValidEmail reports whether email has the basic local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
