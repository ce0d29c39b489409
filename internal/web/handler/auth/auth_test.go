package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authsvc "github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	websess "github.com/maxdaylight/HomelabWiki/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite in-memory db")

	require.NoError(t, db.AutoMigrate(&models.User{}), "failed to migrate user model")

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: false,
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    5000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
		Auth: config.Auth{
			Local: config.LocalAuth{Enabled: true, AdminUsername: "admin", AdminPassword: "changeme"},
			LDAP:  config.LDAPAuth{Enabled: false},
		},
	}
}

func newTestService(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	app := fiber.New()

	websess.Init(nil)

	var s Service
	require.NoError(t, s.Init(app, newTestConfig(), db))

	local := authsvc.NewLocalProvider(db)
	require.NoError(t, local.EnsureAdmin("admin", "changeme"))

	return app, db
}

func performLogin(t *testing.T, app *fiber.App, username, password string) *http.Response {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`

	req := httptest.NewRequest(http.MethodPost, Path+"/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func TestLoginSuccess(t *testing.T) {
	app, _ := newTestService(t)

	resp := performLogin(t, app, "admin", "changeme")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, websess.CookieName+"=")
	assert.Contains(t, strings.ToLower(setCookie), "httponly")
	assert.Contains(t, strings.ToLower(setCookie), "secure")

	var body struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Login successful", body.Message)
	assert.Equal(t, "admin", body.User.Username)
	assert.True(t, body.User.IsAdmin)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	app, _ := newTestService(t)

	wrongPass := performLogin(t, app, "admin", "wrong")
	defer wrongPass.Body.Close()

	unknownUser := performLogin(t, app, "nobody", "whatever")
	defer unknownUser.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)

	// wrong password and unknown username must produce the identical response
	bodyWrong, err := io.ReadAll(wrongPass.Body)
	require.NoError(t, err)

	bodyUnknown, err := io.ReadAll(unknownUser.Body)
	require.NoError(t, err)

	assert.Equal(t, string(bodyWrong), string(bodyUnknown))
	assert.Contains(t, string(bodyWrong), "Invalid username or password")
}

func TestLoginValidation(t *testing.T) {
	app, _ := newTestService(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"missing password", `{"username":"admin"}`},
		{"missing username", `{"password":"x"}`},
		{"empty body", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, Path+"/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == websess.CookieName {
			return c
		}
	}

	t.Fatal("session cookie not set")

	return nil
}

func TestMeRequiresAuth(t *testing.T) {
	app, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, Path+"/me", nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeReturnsCurrentUser(t *testing.T) {
	app, _ := newTestService(t)

	login := performLogin(t, app, "admin", "changeme")
	defer login.Body.Close()

	cookie := sessionCookie(t, login)

	req := httptest.NewRequest(http.MethodGet, Path+"/me", nil)
	req.AddCookie(cookie)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		User models.User `json:"user"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "admin", body.User.Username)
}

func TestCheckReportsAuthState(t *testing.T) {
	app, _ := newTestService(t)

	// anonymous
	req := httptest.NewRequest(http.MethodGet, Path+"/check", nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	var anon struct {
		Authenticated bool `json:"authenticated"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&anon))
	assert.False(t, anon.Authenticated)

	// authenticated
	login := performLogin(t, app, "admin", "changeme")
	defer login.Body.Close()

	req = httptest.NewRequest(http.MethodGet, Path+"/check", nil)
	req.AddCookie(sessionCookie(t, login))

	resp2, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp2.Body.Close()

	var authed struct {
		Authenticated bool `json:"authenticated"`
	}

	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&authed))
	assert.True(t, authed.Authenticated)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	app, _ := newTestService(t)

	login := performLogin(t, app, "admin", "changeme")
	defer login.Body.Close()

	cookie := sessionCookie(t, login)

	req := httptest.NewRequest(http.MethodPost, Path+"/logout", nil)
	req.AddCookie(cookie)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the old session no longer authenticates
	req = httptest.NewRequest(http.MethodGet, Path+"/me", nil)
	req.AddCookie(cookie)

	resp2, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp2.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
