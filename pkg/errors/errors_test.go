package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

func TestApplicationError_Error(t *testing.T) {
	err := New(RefGitClone, "Failed to clone repository", "https://github.com/acme/a", fmt.Errorf("exit status 128"), LevelError)

	assert.Contains(t, err.Error(), "[GIT_CLONE_ERROR] Failed to clone repository - https://github.com/acme/a")
	assert.Contains(t, err.Error(), "(caused by: exit status 128)")
	assert.NotEmpty(t, err.CallerTrace)
}

func TestHasReference(t *testing.T) {
	timeout := New(RefGitTimeout, "git timed out", "", nil, LevelError)
	clone := New(RefGitClone, "clone failed", "", timeout, LevelError)
	wrapped := fmt.Errorf("group a: %w", clone)

	assert.True(t, HasReference(wrapped, RefGitClone))
	assert.True(t, HasReference(wrapped, RefGitTimeout))
	assert.False(t, HasReference(wrapped, RefSyncRunning))
	assert.False(t, HasReference(nil, RefGitClone))
	assert.False(t, HasReference(fmt.Errorf("plain"), RefGitClone))
}

func TestWriteHTTPError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		ref    string
	}{
		{"fatal", New(RefSyncPassFailed, "pass failed", "", nil, LevelFatal), http.StatusInternalServerError, RefSyncPassFailed},
		{"error", New(RefAirtableAPI, "bad request", "", nil, LevelError), http.StatusBadRequest, RefAirtableAPI},
		{"warning", New(RefSyncRunning, "busy", "", nil, LevelWarning), http.StatusConflict, RefSyncRunning},
		{"info", New("NOTE", "fyi", "", nil, LevelInfo), http.StatusOK, "NOTE"},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteHTTPError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body HTTPErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.ref, body.ErrorRef)
		})
	}
}

func TestWriteHTTPError_LogsCallerTraceAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLevel(logger.LevelDebug)
	t.Cleanup(func() {
		logger.SetLevel(logger.LevelInfo)
		logger.SetOutput(os.Stdout)
	})

	WriteHTTPError(httptest.NewRecorder(), New(RefSyncPassFailed, "pass failed", "", nil, LevelFatal))

	out := buf.String()
	assert.Contains(t, out, "SYNC_PASS_FAILED raised at:")
	assert.Contains(t, out, "errors_test.go")
}
