package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONErrorResponseAlwaysCarriesError(t *testing.T) {
	rr := httptest.NewRecorder()

	err := JSONErrorResponse(rr, nil, "Piggy bank not found", http.StatusNotFound, nil)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Piggy bank not found", body["error"])
}

func TestJSONAcceptedResponse(t *testing.T) {
	rr := httptest.NewRecorder()

	err := JSONAcceptedResponse(rr, map[string]any{"Pending": true}, "")
	require.NoError(t, err)

	var body struct {
		Status int            `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	assert.Equal(t, http.StatusAccepted, body.Status)
	assert.Equal(t, true, body.Data["pending"])
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestConvertKeysToSnakeCase(t *testing.T) {
	got := ConvertKeysToSnakeCase(map[string]any{
		"PiggyBank":     map[string]any{"GoalAmount": "1"},
		"InvitePending": false,
	})

	assert.Contains(t, got, "piggy_bank")
	assert.Contains(t, got, "invite_pending")
	assert.Contains(t, got["piggy_bank"], "goal_amount")
}

func TestMetricsResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	mw := NewMetricsResponseWriter(rr)

	mw.WriteHeader(http.StatusTeapot)
	mw.Write([]byte("hello"))

	assert.Equal(t, http.StatusTeapot, mw.StatusCode)
	assert.Equal(t, 5, mw.BytesCount)
}
