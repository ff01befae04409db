package model

import "time"

// Rating is a student's 1 to 5 score for a teacher. Ratings are append-only.
type Rating struct {
	ID          string    `json:"id"`
	TeacherName string    `json:"teacher_name"`
	Subject     string    `json:"subject"`
	Rating      int       `json:"rating"`
	Feedback    string    `json:"feedback"`
	UserEmail   *string   `json:"user_email"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"-"`
}

// Teacher is an entry in the static roster served at /api/teachers.
type Teacher struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
}
