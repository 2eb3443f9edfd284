package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationf(t *testing.T) {
	err := Validationf("field %q is required", "query")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), `field "query" is required`)
}

func TestPropagates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"quota", &QuotaExceededError{Reason: "limit reached"}, true},
		{"security", &SecurityViolationError{Reason: "blocked"}, true},
		{"wrapped quota", fmt.Errorf("inference: %w", &QuotaExceededError{}), true},
		{"validation", Validationf("bad"), false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Propagates(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "quota exceeded", (&QuotaExceededError{}).Error())
	assert.Equal(t, "too many sessions", (&QuotaExceededError{Reason: "too many sessions"}).Error())
	assert.Equal(t, "security violation", (&SecurityViolationError{}).Error())
}
