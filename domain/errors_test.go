package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("processing: %w", InternalError("Failed to process session results", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusCode(Unauthorized()))
	assert.Equal(t, http.StatusForbidden, StatusCode(Forbidden("no")))
	assert.Equal(t, http.StatusNotFound, StatusCode(NotFound("missing")))
	assert.Equal(t, http.StatusBadRequest, StatusCode(BadRequest("bad")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Conflict("busy")))
	assert.True(t, Retryable(InternalError("boom", nil)))
	assert.True(t, Retryable(errors.New("plain")))
	assert.False(t, Retryable(Forbidden("no")))
	assert.False(t, Retryable(NotFound("missing")))
}

func TestNewProcessSummary(t *testing.T) {
	empty := NewProcessSummary(0, 0)
	assert.Equal(t, ProcessSummary{Message: "No new results to process"}, empty)

	s := NewProcessSummary(3, 2)
	assert.Equal(t, 3, s.Processed)
	assert.Equal(t, 2, s.DuplicatesFound)
	assert.Equal(t, "Processed 3 results with 2 potential duplicates identified", s.Message)
}
