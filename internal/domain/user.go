package domain

import "time"

// User is a registered account. Users are never updated or deleted through the app.
type User struct {
	ID           int64     `json:"id,string"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
