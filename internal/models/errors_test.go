package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInputf(t *testing.T) {
	err := InvalidInputf("unsupported host %q", "example.org")

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "example.org")
}

func TestRetrievalErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := fmt.Errorf("resolve: %w", NewRetrievalError(RetrievalTimeout, "https://www.reddit.com/x", 0, cause))

	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatal("expected RetrievalError in chain")
	}
	assert.Equal(t, RetrievalTimeout, re.Kind)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRetrievalKind(err, RetrievalTimeout))
	assert.False(t, IsRetrievalKind(err, RetrievalBlocked))
}

func TestRetrievalErrorDetail(t *testing.T) {
	tests := []struct {
		kind     RetrievalKind
		status   int
		contains string
	}{
		{RetrievalBlocked, 429, "HTTP 429"},
		{RetrievalBlocked, 0, "blocked"},
		{RetrievalNotFound, 404, "not found"},
		{RetrievalTimeout, 0, "Timed out"},
		{RetrievalMalformed, 200, "unexpected"},
		{RetrievalCancelled, 0, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			detail := NewRetrievalError(tt.kind, "", tt.status, nil).Detail()
			if !strings.Contains(detail, tt.contains) {
				t.Errorf("expected detail to contain %q, got %q", tt.contains, detail)
			}
		})
	}
}

func TestEmptyReportDataHasNoNilLists(t *testing.T) {
	d := EmptyReportData()

	assert.NotNil(t, d.Authors)
	assert.NotNil(t, d.Spoilers)
	assert.NotNil(t, d.Emails)
	assert.NotNil(t, d.Dates)
	assert.NotNil(t, d.Entities)
	assert.NotNil(t, d.TriggerWarnings)
}
