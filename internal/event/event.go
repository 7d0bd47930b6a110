package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Type discriminates identity-provider lifecycle events
type Type string

const (
	TypeUserCreated         Type = "user.created"
	TypeUserUpdated         Type = "user.updated"
	TypeUserDeleted         Type = "user.deleted"
	TypeOrganizationCreated Type = "organization.created"
	TypeOrganizationUpdated Type = "organization.updated"
	TypeOrganizationDeleted Type = "organization.deleted"
)

// ValidationError is a permanent rejection: retrying will not produce
// a different payload
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event payload: field %q %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a permanent payload rejection
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserPayload is the validated, canonical form of a user event
type UserPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrganizationPayload is the validated, canonical form of an
// organization event
type OrganizationPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Event is the strict internal representation of one webhook delivery.
// Exactly one of User/Organization is set, matching Type. Handlers
// never see partially-validated external data.
type Event struct {
	DeliveryID   string               `json:"deliveryId"`
	Type         Type                 `json:"type"`
	User         *UserPayload         `json:"user,omitempty"`
	Organization *OrganizationPayload `json:"organization,omitempty"`
}

// Wire shapes as delivered by the identity provider. Timestamps are
// unix milliseconds.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type userData struct {
	ID                    string         `json:"id" validate:"required"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

type organizationData struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ImageURL  string `json:"image_url"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse validates a raw webhook body into the internal representation.
// Returns *ValidationError for malformed or incomplete payloads.
func Parse(raw []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ValidationError{Field: "body", Reason: "is not valid JSON"}
	}

	evt := &Event{
		DeliveryID: uuid.NewString(),
		Type:       Type(env.Type),
	}

	switch evt.Type {
	case TypeUserCreated, TypeUserUpdated:
		payload, err := parseUser(env.Data, true)
		if err != nil {
			return nil, err
		}
		evt.User = payload
	case TypeUserDeleted:
		payload, err := parseUser(env.Data, false)
		if err != nil {
			return nil, err
		}
		evt.User = payload
	case TypeOrganizationCreated, TypeOrganizationUpdated:
		payload, err := parseOrganization(env.Data, true)
		if err != nil {
			return nil, err
		}
		evt.Organization = payload
	case TypeOrganizationDeleted:
		payload, err := parseOrganization(env.Data, false)
		if err != nil {
			return nil, err
		}
		evt.Organization = payload
	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("is unknown (%q)", env.Type)}
	}

	return evt, nil
}

func parseUser(data json.RawMessage, full bool) (*UserPayload, error) {
	var d userData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ValidationError{Field: "data", Reason: "is not a valid user object"}
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fieldError(err)
	}

	payload := &UserPayload{
		ID:        d.ID,
		Name:      joinName(d.FirstName, d.LastName),
		ImageURL:  d.ImageURL,
		CreatedAt: millisToTime(d.CreatedAt),
		UpdatedAt: millisToTime(d.UpdatedAt),
	}
	if !full {
		// Deletion payloads carry the id only
		return payload, nil
	}

	email, found := primaryEmail(d)
	if !found {
		return nil, &ValidationError{Field: "primary_email_address", Reason: "is missing"}
	}
	payload.Email = email
	return payload, nil
}

func parseOrganization(data json.RawMessage, full bool) (*OrganizationPayload, error) {
	var d organizationData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ValidationError{Field: "data", Reason: "is not a valid organization object"}
	}
	if !full {
		if d.ID == "" {
			return nil, &ValidationError{Field: "id", Reason: "is required"}
		}
		return &OrganizationPayload{ID: d.ID}, nil
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fieldError(err)
	}

	return &OrganizationPayload{
		ID:        d.ID,
		Name:      d.Name,
		ImageURL:  d.ImageURL,
		CreatedAt: millisToTime(d.CreatedAt),
		UpdatedAt: millisToTime(d.UpdatedAt),
	}, nil
}

// primaryEmail resolves the primary-email pointer against the address
// list, falling back to the first listed address
func primaryEmail(d userData) (string, bool) {
	for _, addr := range d.EmailAddresses {
		if addr.ID != "" && addr.ID == d.PrimaryEmailAddressID && addr.EmailAddress != "" {
			return addr.EmailAddress, true
		}
	}
	if len(d.EmailAddresses) > 0 && d.EmailAddresses[0].EmailAddress != "" {
		return d.EmailAddresses[0].EmailAddress, true
	}
	return "", false
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Reason: "is required"}
	}
	return &ValidationError{Field: "data", Reason: "failed validation"}
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}
