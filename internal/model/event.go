package model

import "time"

// EventStatus is where a calendar event sits relative to today.
type EventStatus string

const (
	StatusUpcoming EventStatus = "upcoming"
	StatusPast     EventStatus = "past"
)

func (s EventStatus) Valid() bool {
	return s == StatusUpcoming || s == StatusPast
}

// Event is a calendar entry. Events are append-only.
type Event struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Type      string      `json:"type"`
	Date      string      `json:"date"`
	Status    EventStatus `json:"status"`
	CreatedAt time.Time   `json:"-"`
}

// Exam is an entry in the static exam countdown list.
type Exam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}
