package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestExplainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "model outage names access and keeps the user message",
			err:  common.NewUserError("the assistant is unavailable right now", fmt.Errorf("%w: dial tcp", common.ErrModelConnection)),
			want: []string{"the assistant is unavailable right now", "access problem", "try again"},
		},
		{
			name: "rate limit names access",
			err:  common.ErrModelRateLimit,
			want: []string{"access problem", "try again"},
		},
		{
			name: "invalid tool output names validation",
			err:  fmt.Errorf("%w: totals do not reconcile", common.ErrInvalidToolOutput),
			want: []string{"validation problem", "try"},
		},
		{
			name: "insufficient data names data",
			err:  common.ErrInsufficientData,
			want: []string{"data problem", "try again"},
		},
		{
			name: "unknown errors are technical",
			err:  errors.New("disk on fire"),
			want: []string{"disk on fire", "technical problem", "try again"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explainError(tt.err)
			for _, fragment := range tt.want {
				assert.Contains(t, got, fragment)
			}
		})
	}
}

func TestExplainError_HidesWrappedDetailBehindUserMessage(t *testing.T) {
	err := common.NewUserError("your feedback could not be saved", errors.New("database is locked"))
	got := explainError(err)

	assert.Contains(t, got, "your feedback could not be saved")
	assert.NotContains(t, got, "database is locked")
}
