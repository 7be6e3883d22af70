package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := Wrap(ErrCodeSinkIO, cause, "flush")

	if err.Code != ErrCodeSinkIO {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeSinkIO)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeInvalidInput, "test"), ErrCodeInvalidInput, true},
		{"non-matching code", New(ErrCodeInvalidInput, "test"), ErrCodeSinkIO, false},
		{"wrapped error", Wrap(ErrCodeSinkIO, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeSinkIO, true},
		{"inner code not seen", Wrap(ErrCodeInternal, New(ErrCodeSinkIO, "inner"), "outer"), ErrCodeSinkIO, false},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHas(t *testing.T) {
	nested := Wrap(ErrCodeInternal, Wrap(ErrCodeTimeout, New(ErrCodeSinkIO, "inner"), "mid"), "outer")

	if !Has(nested, ErrCodeSinkIO) {
		t.Error("Has(nested, SINK_IO) = false, want true")
	}
	if !Has(nested, ErrCodeInternal) {
		t.Error("Has(nested, INTERNAL_ERROR) = false, want true")
	}
	if Has(nested, ErrCodeNotFound) {
		t.Error("Has(nested, NOT_FOUND) = true, want false")
	}
	if Has(errors.New("plain"), ErrCodeSinkIO) {
		t.Error("Has(plain) = true, want false")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeResourceShape, "test"), ErrCodeResourceShape},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Run("with retry after", func(t *testing.T) {
		err := &RateLimitedError{RetryAfter: 60}
		expected := "rate limited: retry after 60 seconds"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without retry after", func(t *testing.T) {
		err := &RateLimitedError{}
		if err.Error() != "rate limited" {
			t.Errorf("Error() = %v, want %v", err.Error(), "rate limited")
		}
	})

	t.Run("code method", func(t *testing.T) {
		err := &RateLimitedError{}
		if err.Code() != ErrCodeRateLimited {
			t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeRateLimited)
		}
	})
}
