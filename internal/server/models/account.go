// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a customer row of the WordPress users table. PasswordHash is
// the stored credential exactly as persisted.
type Account struct {
	ID           int64
	Login        string
	Email        string
	DisplayName  string
	PasswordHash string
	Registered   time.Time
}
