package models

import "time"

// Redemption records one exchange of points for a reward.
type Redemption struct {
	ID          string    `json:"id"`
	AccountID   int64     `json:"-"`
	RewardID    int64     `json:"reward_id"`
	RewardName  string    `json:"reward_name,omitempty"`
	Code        string    `json:"code"`
	PointsSpent int64     `json:"points_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedemptionResult is returned to the customer after a successful redemption.
type RedemptionResult struct {
	RedemptionID string `json:"redemption_id"`
	NewBalance   int64  `json:"new_balance"`
	Code         string `json:"code"`
}
