package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidRule      = errors.New("invalid merchant rule")
	ErrInvalidExample   = errors.New("invalid correction example")
	ErrInvalidFeedback  = errors.New("invalid search feedback")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule validates a merchant rule before writing it.
func validateRule(rule *model.MerchantRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Merchant) == "" {
		return fmt.Errorf("%w: missing merchant", ErrInvalidRule)
	}
	if !rule.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, rule.Category)
	}
	if rule.Scope != model.ScopeUser && rule.Scope != model.ScopeGlobal {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidRule, rule.Scope)
	}
	if rule.Scope == model.ScopeUser && strings.TrimSpace(rule.OwnerID) == "" {
		return fmt.Errorf("%w: user-scoped rule needs an owner", ErrInvalidRule)
	}
	if rule.Confidence < 0 || rule.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidRule)
	}
	return nil
}

// validateExample validates a correction example before writing it.
func validateExample(example *model.CorrectionExample) error {
	if example == nil {
		return fmt.Errorf("%w: example", ErrNilParameter)
	}
	if strings.TrimSpace(example.Concept) == "" {
		return fmt.Errorf("%w: missing concept", ErrInvalidExample)
	}
	if !example.NewCategory.Valid() {
		return fmt.Errorf("%w: unknown corrected category %q", ErrInvalidExample, example.NewCategory)
	}
	if example.Confidence < 0 || example.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidExample)
	}
	return nil
}

// validateFeedback validates a search feedback row before writing it.
func validateFeedback(feedback *model.SearchFeedback) error {
	if feedback == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if strings.TrimSpace(feedback.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidFeedback)
	}
	if strings.TrimSpace(feedback.Query) == "" {
		return fmt.Errorf("%w: missing query", ErrInvalidFeedback)
	}
	if feedback.ExpenseID <= 0 {
		return fmt.Errorf("%w: missing expense id", ErrInvalidFeedback)
	}
	if feedback.Type != model.FeedbackCorrect && feedback.Type != model.FeedbackIncorrect {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFeedback, feedback.Type)
	}
	return nil
}
