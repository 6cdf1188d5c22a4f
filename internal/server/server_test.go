package server

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"myfeed/internal/config"
	"myfeed/internal/mailer"
	"myfeed/internal/middleware"
	"myfeed/internal/models"
	"myfeed/internal/testutil"
)

const testPassword = "Str0ng-Passw0rd!"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:   "test-secret-0123456789abcdef0123456789abcdef",
		JWTIssuer:   "myfeed-api",
		JWTAudience: "myfeed-clients",
		Port:        "8480",
		PublicURL:   "http://localhost:8480",
		MediaBucket: "myfeed-media",
		Env:         "test",
	}
}

// newTestServer wires a Server onto an in-memory database and a fake media
// store, with routes registered on a fresh app.
func newTestServer(t *testing.T) (*Server, *fiber.App, *testutil.FakeStore) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.OpenTestDB(t)
	store := testutil.NewFakeStore()

	s, err := NewServerWithDeps(testConfig(), db, nil, store, mailer.NewLogMailer(middleware.Logger))
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, store
}

// seedVerifiedUser inserts an account that can sign in with testPassword.
func seedVerifiedUser(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:       username + "-id",
		Username: username,
		Name:     username,
		Email:    username + "@example.com",
		Password: string(hashed),
		Verified: true,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

// authHeader mints a bearer token for username.
func authHeader(t *testing.T, s *Server, username string) string {
	t.Helper()
	token, err := s.generateToken(username)
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON runs a request with an optional JSON body and decodes the response
// into out when non-nil.
func doJSON(t *testing.T, app *fiber.App, req *http.Request, out any) *http.Response {
	t.Helper()
	resp, err := app.Test(req, int(10*time.Second/time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp
}
