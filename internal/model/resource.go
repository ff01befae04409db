package model

import "time"

// ResourceType enumerates the kinds of uploaded material.
type ResourceType string

const (
	TypeNotes     ResourceType = "Notes"
	TypePYQ       ResourceType = "PYQ"
	TypeSummary   ResourceType = "Summary"
	TypePractical ResourceType = "Practical"
)

// Valid reports whether t is one of the four known types.
func (t ResourceType) Valid() bool {
	switch t {
	case TypeNotes, TypePYQ, TypeSummary, TypePractical:
		return true
	}
	return false
}

// Privacy controls who may download a resource's blob.
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

func (p Privacy) Valid() bool {
	return p == PrivacyPublic || p == PrivacyPrivate
}

// Resource is the metadata record describing one uploaded document.
//
// ID is assigned by the Datastore and never changes. Downloads only grows.
// Filename, when set, names the Blob holding the document bytes; at most one
// Resource references a given Blob. Owner is the email of the authenticated
// user who created the record (empty for anonymous uploads) and is the only
// account that may download a private resource.
type Resource struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Subject     *string      `json:"subject"`
	Course      string       `json:"course"`
	Type        ResourceType `json:"type"`
	Author      string       `json:"author"`
	Downloads   int          `json:"downloads"`
	Date        string       `json:"date"`
	Privacy     Privacy      `json:"privacy"`
	Filename    *string      `json:"filename"`
	Semester    *int         `json:"semester"`
	Year        *int         `json:"year"`
	Description *string      `json:"description"`
	College     *string      `json:"college"`
	ContentType *string      `json:"content_type,omitempty"`
	Owner       string       `json:"-"`
	CreatedAt   time.Time    `json:"-"`
}

// VisibleTo reports whether requester may see this resource's blob.
// Public resources are visible to everyone, including anonymous callers.
func (r *Resource) VisibleTo(requester string) bool {
	if r.Privacy != PrivacyPrivate {
		return true
	}
	return r.Owner != "" && r.Owner == requester
}
