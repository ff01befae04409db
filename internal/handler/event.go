package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/service"
)

// Calendar is implemented by *service.EventStore.
type Calendar interface {
	Create(ctx context.Context, in service.EventInput) (*model.Event, error)
	List(ctx context.Context) []model.Event
	Exams() []model.Exam
}

type EventHandler struct {
	events Calendar
	logger *slog.Logger
}

func NewEventHandler(events Calendar, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// HandleList → GET /api/events
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.events.List(r.Context()))
}

type createEventRequest struct {
	Title  string            `json:"title"`
	Type   string            `json:"type"`
	Date   string            `json:"date"`
	Status model.EventStatus `json:"status"`
}

type createEventResponse struct {
	Message string       `json:"message"`
	Event   *model.Event `json:"event"`
}

// HandleCreate → POST /api/events. Any client-supplied id is ignored.
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	ev, err := h.events.Create(r.Context(), service.EventInput{
		Title:  req.Title,
		Type:   req.Type,
		Date:   req.Date,
		Status: req.Status,
	})
	if err != nil {
		logFailure(h.logger, "creating event failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createEventResponse{
		Message: "Event created successfully",
		Event:   ev,
	})
}

// HandleExams → GET /api/exams
func (h *EventHandler) HandleExams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.events.Exams())
}
