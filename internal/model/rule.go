package model

import "time"

// RuleScope indicates whether a merchant rule belongs to one user or to everyone.
type RuleScope string

const (
	// ScopeUser rules are learned from a single user's corrections.
	ScopeUser RuleScope = "user"
	// ScopeGlobal rules are shared and reinforced by matching user corrections.
	ScopeGlobal RuleScope = "global"
)

// MerchantRule maps a merchant token to a category.
// Rules created from an explicit correction always carry confidence 1.0.
type MerchantRule struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	OwnerID    string
	Merchant   string
	Scope      RuleScope
	Category   Category
	ID         int64
	Confidence float64
	VoteCount  int
}
