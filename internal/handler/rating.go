package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/resource-hub/internal/auth"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/service"
)

// Ratings is implemented by *service.RatingStore.
type Ratings interface {
	Add(ctx context.Context, in service.RatingInput, userEmail string) (*model.Rating, error)
	List(ctx context.Context, teacherName string) []model.Rating
	Teachers() []model.Teacher
}

type RatingHandler struct {
	ratings Ratings
	logger  *slog.Logger
}

func NewRatingHandler(ratings Ratings, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{ratings: ratings, logger: logger}
}

// HandleList returns ratings newest first.
//
// HTTP: GET /api/ratings?teacher_name=
func (h *RatingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ratings.List(r.Context(), r.URL.Query().Get("teacher_name")))
}

type addRatingRequest struct {
	TeacherName string `json:"teacher_name"`
	Subject     string `json:"subject"`
	Rating      int    `json:"rating"`
	Feedback    string `json:"feedback"`
	Date        string `json:"date"`
}

type addRatingResponse struct {
	Message string        `json:"message"`
	Rating  *model.Rating `json:"rating"`
}

// HandleAdd records a rating. An authenticated caller's email is attached;
// anonymous ratings are accepted.
//
// HTTP: POST /api/ratings
func (h *RatingHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	userEmail, _ := auth.SubjectFromContext(r.Context())
	rating, err := h.ratings.Add(r.Context(), service.RatingInput{
		TeacherName: req.TeacherName,
		Subject:     req.Subject,
		Rating:      req.Rating,
		Feedback:    req.Feedback,
		Date:        req.Date,
	}, userEmail)
	if err != nil {
		logFailure(h.logger, "adding rating failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, addRatingResponse{
		Message: "Rating submitted successfully",
		Rating:  rating,
	})
}

// HandleTeachers → GET /api/teachers
func (h *RatingHandler) HandleTeachers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ratings.Teachers())
}
