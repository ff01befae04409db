package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
)

// teachers is the roster offered for rating.
var teachers = []model.Teacher{
	{Name: "Dr. Arvinder Singh", Subject: "Data Structures"},
	{Name: "Prof. Meenakshi", Subject: "Computer Science 101"},
	{Name: "Dr. Rajesh Verma", Subject: "Digital Electronics"},
	{Name: "Ms. Pooja Sharma", Subject: "Mathematics IV"},
	{Name: "Mr. Vikram Aditya", Subject: "Operating Systems"},
}

// RatingStore records append-only teacher ratings.
type RatingStore struct {
	ratings repository.RatingRepository
	logger  *slog.Logger
	now     clock
}

// NewRatingStore creates a RatingStore over the given repository. Read
// failures are logged to logger and degrade to an empty list.
func NewRatingStore(ratings repository.RatingRepository, logger *slog.Logger) *RatingStore {
	return &RatingStore{ratings: ratings, logger: logger, now: time.Now}
}

// RatingInput is a rating as submitted. Date may be empty (now), a calendar
// day (YYYY-MM-DD) or an RFC 3339 timestamp.
type RatingInput struct {
	TeacherName string
	Subject     string
	Rating      int
	Feedback    string
	Date        string
}

// Add validates and stores a rating. userEmail is the authenticated caller,
// or "" for anonymous ratings.
func (s *RatingStore) Add(ctx context.Context, in RatingInput, userEmail string) (*model.Rating, error) {
	r := &model.Rating{
		TeacherName: strings.TrimSpace(in.TeacherName),
		Subject:     strings.TrimSpace(in.Subject),
		Rating:      in.Rating,
		Feedback:    strings.TrimSpace(in.Feedback),
	}
	if userEmail != "" {
		r.UserEmail = &userEmail
	}

	date, err := s.ratingDate(in.Date)
	if err != nil {
		return nil, err
	}
	r.Date = date

	switch {
	case r.Rating < 1 || r.Rating > 5:
		return nil, apperror.ValidationFailed("rating", "rating must be between 1 and 5")
	case r.TeacherName == "":
		return nil, apperror.ValidationFailed("teacher_name", "teacher name is required")
	case r.Subject == "":
		return nil, apperror.ValidationFailed("subject", "subject is required")
	}

	if err := s.ratings.Create(ctx, r); err != nil {
		return nil, writeFailure("saving rating", err)
	}
	return r, nil
}

// ratingDate stores every date as a UTC RFC 3339 timestamp, since List
// orders by the stored text. A bare day becomes midnight UTC.
func (s *RatingStore) ratingDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().UTC().Format(time.RFC3339), nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.Format(time.RFC3339), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	return "", apperror.ValidationFailed("date", "date must be YYYY-MM-DD or an RFC 3339 timestamp")
}

// List returns up to repository.MaxListLimit ratings, newest first,
// optionally only those for teacherName.
func (s *RatingStore) List(ctx context.Context, teacherName string) []model.Rating {
	ratings, err := s.ratings.List(ctx, strings.TrimSpace(teacherName), repository.MaxListLimit)
	if err != nil {
		s.logger.Warn("listing ratings failed, returning empty list", slog.Any("error", err))
		return []model.Rating{}
	}
	return ratings
}

// Teachers returns a copy of the static roster.
func (s *RatingStore) Teachers() []model.Teacher {
	out := make([]model.Teacher, len(teachers))
	copy(out, teachers)
	return out
}
