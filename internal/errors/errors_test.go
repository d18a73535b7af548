package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadGateway, TypeDataUnavailable, "Data Unavailable", "failed to load", "/api/x").
		WithExtension("company", "Google").
		WithExtension("status", "ignored")

	data, err := json.Marshal(pd)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "/errors/data/unavailable",
		"title": "Data Unavailable",
		"status": 502,
		"detail": "failed to load",
		"instance": "/api/x",
		"company": "Google"
	}`, string(data))
}

func TestAppError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewNetworkError("fetch companies", cause)

	assert.Equal(t, "[NETWORK] fetch companies: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsType(err, ErrTypeNetwork))
	assert.False(t, IsType(err, ErrTypeStorage))
	assert.False(t, IsType(cause, ErrTypeNetwork))
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{{Field: "window", Message: "unknown window"}})
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 1)
}
