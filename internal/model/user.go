// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. It doubles as the request principal once a
// session has been resolved: handlers receive it from the auth middleware and
// pass it explicitly into every task operation.
//
// PasswordHash is never serialised. It holds a bcrypt hash for accounts
// registered with a password, or a hash of a random secret for accounts
// created through GitHub sign-in.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
