package model

import "time"

// Expense represents a single spending record.
type Expense struct {
	Date     time.Time
	Concept  string
	OwnerID  string
	Category Category
	ID       int64
	Amount   float64
}

// MonthTotal is an aggregated per-month, per-category spending total.
type MonthTotal struct {
	Totals map[Category]float64
	Month  string // YYYY-MM
}
