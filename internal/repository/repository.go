// Package repository defines the Datastore contracts: one repository per
// record collection (users, resources, events, ratings).
//
// Implementations return *apperror.AppError for NotFound and Conflict and
// wrapped raw errors for everything else; the service layer decides which of
// those become StoreUnavailable.
package repository

import (
	"context"

	"github.com/sakif/resource-hub/internal/model"
)

// MaxListLimit caps every list query.
const MaxListLimit = 100

type UserRepository interface {
	// Create inserts a user and fills in ID and CreatedAt.
	// A duplicate email yields apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// ResourceFilter holds the AND-combined list predicates. Empty slices and nil
// pointers mean "no constraint". Courses and Subjects are OR-sets.
type ResourceFilter struct {
	Courses  []string
	Subjects []string
	Semester *int
	Year     *int
	Privacy  *model.Privacy
	Search   string
	Limit    int
}

// ResourcePatch enumerates exactly the mutable fields of a Resource. A nil
// field is left unchanged.
type ResourcePatch struct {
	Title       *string
	Subject     *string
	Course      *string
	Type        *model.ResourceType
	Author      *string
	Downloads   *int
	Date        *string
	Privacy     *model.Privacy
	Filename    *string
	Semester    *int
	Year        *int
	Description *string
	College     *string
	ContentType *string
}

// Empty reports whether the patch changes nothing.
func (p ResourcePatch) Empty() bool {
	return p == ResourcePatch{}
}

type ResourceRepository interface {
	Create(ctx context.Context, res *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	GetByFilename(ctx context.Context, filename string) (*model.Resource, error)
	List(ctx context.Context, filter ResourceFilter) ([]model.Resource, error)
	// Update applies patch; Downloads is merged as MAX(stored, patch) so the
	// counter never decreases.
	Update(ctx context.Context, id string, patch ResourcePatch) error
	IncrementDownloads(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// ReferencedFilenames returns the set of blob names linked to any resource.
	ReferencedFilenames(ctx context.Context) (map[string]struct{}, error)
}

type RatingRepository interface {
	Create(ctx context.Context, rating *model.Rating) error
	// List returns ratings sorted by date descending, optionally filtered by
	// exact teacher name.
	List(ctx context.Context, teacherName string, limit int) ([]model.Rating, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	List(ctx context.Context, limit int) ([]model.Event, error)
}
