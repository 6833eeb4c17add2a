package models

import "time"

type RefreshToken struct {
	ID        string
	AccountID int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
