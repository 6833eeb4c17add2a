package models

import "time"

// LoyaltyAccount is the points ledger row of one customer.
type LoyaltyAccount struct {
	AccountID      int64
	Balance        int64
	LifetimePoints int64
	UpdatedAt      time.Time
}

// Tier is a loyalty level derived from lifetime points.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Summary is what a customer sees on the dashboard.
type Summary struct {
	AccountID      int64  `json:"account_id"`
	DisplayName    string `json:"display_name"`
	Balance        int64  `json:"balance"`
	LifetimePoints int64  `json:"lifetime_points"`
	Tier           Tier   `json:"tier"`
	// NextTier is empty at the top tier.
	NextTier         Tier  `json:"next_tier,omitempty"`
	PointsToNextTier int64 `json:"points_to_next_tier"`
	// Progress is the share of the way from Tier to NextTier, 0..100.
	Progress    int   `json:"progress"`
	Redemptions int64 `json:"redemptions"`
}
