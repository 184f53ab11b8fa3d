package model

import "time"

// FeedbackType marks a search result as right or wrong for a query.
type FeedbackType string

const (
	// FeedbackCorrect means the expense was a good match for the query.
	FeedbackCorrect FeedbackType = "correct"
	// FeedbackIncorrect means the expense should not have matched.
	FeedbackIncorrect FeedbackType = "incorrect"
)

// SearchFeedback is one user's verdict on one (query, expense) pair.
// Rows are unique per (owner, query, expense) and upserted last-write-wins.
type SearchFeedback struct {
	CreatedAt time.Time
	OwnerID   string
	Query     string
	Type      FeedbackType
	ID        int64
	ExpenseID int64
}
