package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/navigator-hub/flow-runner/pkg/auth"
	"github.com/navigator-hub/flow-runner/pkg/storage"
)

func TestBootstrap_CreatesFirstAdminOnly(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/auth/bootstrap", "", map[string]any{
		"email":     "admin@example.com",
		"password":  "secret123",
		"full_name": "Admin",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rr.Code, rr.Body.String())
	}
	var created userRead
	decodeInto(t, rr, &created)
	if created.Email != "admin@example.com" || !created.IsActive || created.ID == 0 {
		t.Errorf("created = %+v", created)
	}

	rr = env.do(http.MethodPost, "/api/auth/bootstrap", "", map[string]any{
		"email":    "second@example.com",
		"password": "secret123",
	})
	wantDetail(t, rr, http.StatusBadRequest, "Admin already initialized")
}

func TestBootstrap_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/api/auth/bootstrap", "", map[string]any{
		"email":    "not-an-email",
		"password": "secret123",
	})
	wantDetail(t, rr, http.StatusUnprocessableEntity, "Invalid email address")

	rr = env.do(http.MethodPost, "/api/auth/bootstrap", "", map[string]any{
		"email": "admin@example.com",
	})
	wantDetail(t, rr, http.StatusUnprocessableEntity, "password is required")
}

func TestLogin_FormAndJSON(t *testing.T) {
	env := newTestEnv(t)
	env.adminToken()

	form := url.Values{"username": {"admin@example.com"}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("form login status = %d (body %s)", rr.Code, rr.Body.String())
	}
	var token map[string]string
	decodeInto(t, rr, &token)
	if token["access_token"] == "" || token["token_type"] != "bearer" {
		t.Errorf("token body = %v", token)
	}

	rr2 := env.do(http.MethodPost, "/api/auth/token", "", map[string]string{
		"email":    "admin@example.com",
		"password": "secret123",
	})
	if rr2.Code != http.StatusOK {
		t.Fatalf("json login status = %d (body %s)", rr2.Code, rr2.Body.String())
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.adminToken()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong_password", email: "admin@example.com", password: "nope"},
		{name: "unknown_user", email: "ghost@example.com", password: "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/auth/token", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			wantDetail(t, rr, http.StatusUnauthorized, "Incorrect credentials")
		})
	}
}

func TestMe_RequiresValidToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken()

	rr := env.do(http.MethodGet, "/api/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rr.Code, rr.Body.String())
	}
	var me userRead
	decodeInto(t, rr, &me)
	if me.Email != "admin@example.com" {
		t.Errorf("me = %+v", me)
	}

	rr = env.do(http.MethodGet, "/api/auth/me", "", nil)
	wantDetail(t, rr, http.StatusUnauthorized, "Could not validate credentials")
	if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", got)
	}

	rr = env.do(http.MethodGet, "/api/auth/me", "garbage-token", nil)
	wantDetail(t, rr, http.StatusUnauthorized, "Could not validate credentials")
}

func TestInactiveUserIsRejected(t *testing.T) {
	env := newTestEnv(t)
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &storage.User{Email: "off@example.com", HashedPassword: hash, IsActive: false}
	if err := env.store.CreateUser(user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := env.server.tokens.Issue("off@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rr := env.do(http.MethodGet, "/api/auth/me", token, nil)
	wantDetail(t, rr, http.StatusBadRequest, "Inactive user")
}

func TestAuthDisabled_UsesDevSuperuser(t *testing.T) {
	env := newTestEnvWith(t, true)

	rr := env.do(http.MethodGet, "/api/auth/me", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rr.Code, rr.Body.String())
	}
	var me userRead
	decodeInto(t, rr, &me)
	if me.Email != "dev@localhost" {
		t.Errorf("me = %+v", me)
	}

	rr = env.do(http.MethodPost, "/api/catalog/tags", "", map[string]string{"name": "daily"})
	if rr.Code != http.StatusCreated {
		t.Errorf("tag create without token = %d, want 201", rr.Code)
	}
}
