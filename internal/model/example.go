package model

import "time"

// CorrectionExample is a stored (wrong -> right) classification pair used for
// few-shot prompting. Examples are created once per correction event; only
// TimesUsed ever changes afterwards.
type CorrectionExample struct {
	CreatedAt   time.Time
	OwnerID     string
	Concept     string
	Merchant    string
	OldCategory Category
	NewCategory Category
	ID          int64
	Confidence  float64
	TimesUsed   int
	IsGlobal    bool
}
