package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
)

// fakeResourceRepo keeps resources in insertion order and applies filters
// the same way the SQLite implementation does.
type fakeResourceRepo struct {
	mu     sync.Mutex
	items  []*model.Resource
	nextID int
	// failAll makes every call fail as if the store were unreachable
	failAll error
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{}
}

func (f *fakeResourceRepo) find(id string) (int, *model.Resource) {
	for i, r := range f.items {
		if r.ID == id {
			return i, r
		}
	}
	return -1, nil
}

func (f *fakeResourceRepo) Create(_ context.Context, res *model.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if res.Filename != nil {
		for _, r := range f.items {
			if r.Filename != nil && *r.Filename == *res.Filename {
				return apperror.Conflict("file", *res.Filename)
			}
		}
	}
	f.nextID++
	res.ID = fmt.Sprintf("res-%d", f.nextID)
	res.CreatedAt = time.Now()
	stored := *res
	f.items = append(f.items, &stored)
	return nil
}

func (f *fakeResourceRepo) GetByID(_ context.Context, id string) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	_, r := f.find(id)
	if r == nil {
		return nil, apperror.NotFound("resource", id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeResourceRepo) GetByFilename(_ context.Context, name string) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, r := range f.items {
		if r.Filename != nil && *r.Filename == name {
			copied := *r
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("file", name)
}

func contains(set []string, v *string) bool {
	if v == nil {
		return false
	}
	for _, s := range set {
		if s == *v {
			return true
		}
	}
	return false
}

func containsFold(v *string, needle string) bool {
	return v != nil && strings.Contains(strings.ToLower(*v), needle)
}

func (f *fakeResourceRepo) List(_ context.Context, flt repository.ResourceFilter) ([]model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := []model.Resource{}
	needle := strings.ToLower(flt.Search)
	for _, r := range f.items {
		switch {
		case len(flt.Courses) > 0 && !contains(flt.Courses, &r.Course):
			continue
		case len(flt.Subjects) > 0 && !contains(flt.Subjects, r.Subject):
			continue
		case flt.Semester != nil && (r.Semester == nil || *r.Semester != *flt.Semester):
			continue
		case flt.Year != nil && (r.Year == nil || *r.Year != *flt.Year):
			continue
		case flt.Privacy != nil && r.Privacy != *flt.Privacy:
			continue
		}
		if needle != "" && !(containsFold(&r.Title, needle) || containsFold(r.Subject, needle) ||
			containsFold(&r.Course, needle) || containsFold(r.Description, needle)) {
			continue
		}
		out = append(out, *r)
		if flt.Limit > 0 && len(out) == flt.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeResourceRepo) Update(_ context.Context, id string, p repository.ResourcePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	_, r := f.find(id)
	if r == nil {
		return apperror.NotFound("resource", id)
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Subject != nil {
		r.Subject = p.Subject
	}
	if p.Course != nil {
		r.Course = *p.Course
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Author != nil {
		r.Author = *p.Author
	}
	if p.Downloads != nil && *p.Downloads > r.Downloads {
		r.Downloads = *p.Downloads
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Privacy != nil {
		r.Privacy = *p.Privacy
	}
	if p.Filename != nil {
		r.Filename = p.Filename
	}
	if p.Semester != nil {
		r.Semester = p.Semester
	}
	if p.Year != nil {
		r.Year = p.Year
	}
	if p.Description != nil {
		r.Description = p.Description
	}
	if p.College != nil {
		r.College = p.College
	}
	if p.ContentType != nil {
		r.ContentType = p.ContentType
	}
	return nil
}

func (f *fakeResourceRepo) IncrementDownloads(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, r := f.find(id)
	if r == nil {
		return apperror.NotFound("resource", id)
	}
	r.Downloads++
	return nil
}

func (f *fakeResourceRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	i, _ := f.find(id)
	if i < 0 {
		return apperror.NotFound("resource", id)
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

func (f *fakeResourceRepo) ReferencedFilenames(_ context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := make(map[string]struct{})
	for _, r := range f.items {
		if r.Filename != nil {
			out[*r.Filename] = struct{}{}
		}
	}
	return out, nil
}

type fakeRatingRepo struct {
	mu      sync.Mutex
	ratings []model.Rating
	failAll error
}

func (f *fakeRatingRepo) Create(_ context.Context, r *model.Rating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	r.ID = fmt.Sprintf("rating-%d", len(f.ratings)+1)
	f.ratings = append(f.ratings, *r)
	return nil
}

func (f *fakeRatingRepo) List(_ context.Context, teacher string, limit int) ([]model.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := []model.Rating{}
	// newest first: dates compare lexically, later inserts win ties
	for i := len(f.ratings) - 1; i >= 0; i-- {
		r := f.ratings[i]
		if teacher != "" && r.TeacherName != teacher {
			continue
		}
		out = append(out, r)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Date > out[j-1].Date; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEventRepo struct {
	mu      sync.Mutex
	events  []model.Event
	failAll error
}

func (f *fakeEventRepo) Create(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	e.ID = fmt.Sprintf("event-%d", len(f.events)+1)
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEventRepo) List(_ context.Context, limit int) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := append([]model.Event{}, f.events...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
