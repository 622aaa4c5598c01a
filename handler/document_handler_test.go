package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/pdf-quizbot/utils"
)

func TestDocumentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const (
		session = "0b7a4c1e-2f1d-4a4e-9a55-5d2b6b0f9c11"
		other   = "7d0c2f7a-9b7e-4a53-8f6e-0f1c2d3e4a5b"
	)
	dir := t.TempDir()
	files := map[string]string{
		"notes_1700000000.pdf": "old",
		"notes_1700000500.pdf": "new",
		"notes_abc.pdf":        "not a timestamp",
		"other_1700000900.pdf": "other",
		"plain.pdf":            "plain",
	}
	sessionDir := filepath.Join(dir, session)
	require.NoError(t, os.MkdirAll(sessionDir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(sessionDir, name), []byte(body), 0o600))
	}
	_, err := utils.SaveWithTimestamp(sessionDir, "my notes (v2).pdf", []byte("spaced"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.pdf"), []byte("outside any session"), 0o600))

	router := gin.New()
	router.GET("/documents", NewDocumentHandler(dir).ServeDocument)

	query := func(session, file string) string {
		v := url.Values{}
		if session != "" {
			v.Set("session", session)
		}
		if file != "" {
			v.Set("file", file)
		}
		return "?" + v.Encode()
	}

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{name: "newest timestamped copy", query: query(session, "notes.pdf"), status: http.StatusOK, body: "new"},
		{name: "exact name", query: query(session, "plain.pdf"), status: http.StatusOK, body: "plain"},
		{name: "name with unsafe characters", query: query(session, "my notes (v2).pdf"), status: http.StatusOK, body: "spaced"},
		{name: "path components are ignored", query: query(session, "../../plain.pdf"), status: http.StatusOK, body: "plain"},
		{name: "missing session", query: query("", "plain.pdf"), status: http.StatusBadRequest},
		{name: "session is not an id", query: query("..", "plain.pdf"), status: http.StatusBadRequest},
		{name: "other session", query: query(other, "plain.pdf"), status: http.StatusNotFound},
		{name: "missing file parameter", query: query(session, ""), status: http.StatusBadRequest},
		{name: "not a pdf", query: query(session, "notes.txt"), status: http.StatusBadRequest},
		{name: "unknown file", query: query(session, "missing.pdf"), status: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/documents"+tc.query, nil)
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				body, err := io.ReadAll(rec.Body)
				require.NoError(t, err)
				assert.Equal(t, tc.body, string(body))
				assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
			}
		})
	}
}
