// Package model defines the records shared by every layer.
//
// The `json:"..."` tags define the wire shape the boundary layer serializes;
// field names follow the snake_case the web client already expects.
package model

import "time"

// User is a registered account. Email is the unique key; ID is the
// store-generated identifier.
//
// Semester is a string because profile forms accept free-form values
// ("1", "VI", "final").
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	College      *string   `json:"college,omitempty"`
	Branch       *string   `json:"branch,omitempty"`
	Semester     *string   `json:"semester,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile is what getProfile returns: the User without credentials.
type UserProfile struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	College  *string `json:"college"`
	Branch   *string `json:"branch"`
	Semester *string `json:"semester"`
}

// Profile strips the credential fields.
func (u *User) Profile() UserProfile {
	return UserProfile{
		Email:    u.Email,
		Name:     u.Name,
		College:  u.College,
		Branch:   u.Branch,
		Semester: u.Semester,
	}
}
