package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestBudgetErrorUnwrapsToSentinel(t *testing.T) {
	err := &BudgetError{UserID: "u1", Reason: ReasonInsufficientCredits, Required: 3, Remaining: 2}

	if !stderrors.Is(err, ErrBudgetExceeded) {
		t.Error("Expected BudgetError to match ErrBudgetExceeded")
	}

	wrapped := fmt.Errorf("orchestration failed: %w", err)
	var budgetErr *BudgetError
	if !stderrors.As(wrapped, &budgetErr) {
		t.Fatal("Expected to recover BudgetError from wrapped chain")
	}
	if budgetErr.Reason != ReasonInsufficientCredits {
		t.Errorf("Expected reason %q, got %q", ReasonInsufficientCredits, budgetErr.Reason)
	}
}

func TestEmptyGenerationDistinctFromTransport(t *testing.T) {
	empty := &EmptyGenerationError{Provider: "openai", Model: "gpt-4o-mini"}
	transport := &TransportError{Provider: "openai", Err: stderrors.New("connection reset")}

	if stderrors.Is(empty, ErrTransport) {
		t.Error("EmptyGenerationError must not match ErrTransport")
	}
	if stderrors.Is(transport, ErrEmptyGeneration) {
		t.Error("TransportError must not match ErrEmptyGeneration")
	}
	if !stderrors.Is(empty, ErrEmptyGeneration) {
		t.Error("Expected EmptyGenerationError to match ErrEmptyGeneration")
	}
	if !stderrors.Is(transport, ErrTransport) {
		t.Error("Expected TransportError to match ErrTransport")
	}
}

func TestSearchErrorWrapsCause(t *testing.T) {
	cause := stderrors.New("http 502")
	err := &SearchError{Engine: "tavily", Err: cause}

	if !stderrors.Is(err, ErrSearchProvider) {
		t.Error("Expected SearchError to match ErrSearchProvider")
	}
	if !stderrors.Is(err, cause) {
		t.Error("Expected SearchError to wrap its cause")
	}
}
