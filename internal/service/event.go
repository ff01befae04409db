package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
)

// exams is the exam countdown schedule.
var exams = []model.Exam{
	{ID: "1", Name: "Mid-Semester Logic Quiz", Date: "2026-02-23T10:00:00"},
	{ID: "2", Name: "Digital Systems Lab Exam", Date: "2026-03-05T14:00:00"},
	{ID: "3", Name: "Final Semester Exams", Date: "2026-05-15T09:00:00"},
}

// EventStore manages campus events and serves the fixed exam schedule.
//
// Writes go straight to the repository; reads never fail the caller. A
// broken datastore shows up as an empty list plus a warning in the log.
type EventStore struct {
	events repository.EventRepository
	logger *slog.Logger
}

// NewEventStore creates an EventStore backed by events.
func NewEventStore(events repository.EventRepository, logger *slog.Logger) *EventStore {
	return &EventStore{events: events, logger: logger}
}

// EventInput has no ID field: every created event gets a fresh one.
type EventInput struct {
	Title  string
	Type   string
	Date   string
	Status model.EventStatus
}

// Create validates in, defaults Status to upcoming and persists the event.
// Title, type and date are required after trimming; the date is stored as
// given. Returns the saved event with its generated ID.
func (s *EventStore) Create(ctx context.Context, in EventInput) (*model.Event, error) {
	ev := &model.Event{
		Title:  strings.TrimSpace(in.Title),
		Type:   strings.TrimSpace(in.Type),
		Date:   strings.TrimSpace(in.Date),
		Status: in.Status,
	}
	if ev.Status == "" {
		ev.Status = model.StatusUpcoming
	}

	switch {
	case ev.Title == "":
		return nil, apperror.ValidationFailed("title", "title is required")
	case ev.Type == "":
		return nil, apperror.ValidationFailed("type", "type is required")
	case ev.Date == "":
		return nil, apperror.ValidationFailed("date", "date is required")
	case !ev.Status.Valid():
		return nil, apperror.ValidationFailed("status", "status must be upcoming or past")
	}

	if err := s.events.Create(ctx, ev); err != nil {
		return nil, writeFailure("saving event", err)
	}
	s.logger.Info("event created", slog.String("id", ev.ID), slog.String("title", ev.Title))
	return ev, nil
}

// List returns up to repository.MaxListLimit events in insertion order.
func (s *EventStore) List(ctx context.Context) []model.Event {
	events, err := s.events.List(ctx, repository.MaxListLimit)
	if err != nil {
		s.logger.Warn("listing events failed, returning empty list", slog.Any("error", err))
		return []model.Event{}
	}
	return events
}

// Exams returns a copy of the exam schedule so callers cannot modify it.
func (s *EventStore) Exams() []model.Exam {
	out := make([]model.Exam, len(exams))
	copy(out, exams)
	return out
}
