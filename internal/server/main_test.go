package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{
		Env:         "test",
		Port:        "0",
		JWTSecret:   testSecret,
		JWTIssuer:   "murmur-auth",
		JWTAudience: "murmur-api",
	}
}

type apiClient struct {
	t   *testing.T
	srv *Server
	app *fiber.App
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	srv, err := NewServerWithDeps(testConfig(), db, nil, nil)
	require.NoError(t, err)
	return &apiClient{t: t, srv: srv, app: srv.App()}
}

// do sends a request as userID; zero means anonymous.
func (a *apiClient) do(method, path string, userID uint, body interface{}) (int, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		token, err := middleware.IssueToken(testSecret, "murmur-auth", "murmur-api", userID, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out
}

// decode runs do and unmarshals the body into out, requiring wantStatus.
func (a *apiClient) decode(method, path string, userID uint, body interface{}, wantStatus int, out interface{}) {
	a.t.Helper()
	status, raw := a.do(method, path, userID, body)
	require.Equal(a.t, wantStatus, status, string(raw))
	if out != nil {
		require.NoError(a.t, json.Unmarshal(raw, out), string(raw))
	}
}

func (a *apiClient) setUsername(userID uint, name string) {
	a.t.Helper()
	a.decode(http.MethodPut, "/api/users/me/username", userID, map[string]string{"username": name}, http.StatusOK, nil)
}
