package api

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/auth"
	"github.com/navigator-hub/flow-runner/pkg/storage"
)

var errInvalidCredentials = errors.New("could not validate credentials")

type userKey struct{}

// UserFrom returns the authenticated user stored by requireUser.
func UserFrom(ctx context.Context) *storage.User {
	user, _ := ctx.Value(userKey{}).(*storage.User)
	return user
}

// userRead is the public view of a user account.
type userRead struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func userToRead(u *storage.User) userRead {
	return userRead{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// login exchanges credentials for an access token. It accepts the
// OAuth2 password form (username/password) as well as a JSON body.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := loginCredentials(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(email)
	if err != nil || !auth.VerifyPassword(password, user.HashedPassword) {
		WriteError(w, http.StatusUnauthorized, "Incorrect credentials")
		return
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Cannot issue token")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func loginCredentials(r *http.Request) (email, password string, ok bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return "", "", false
		}
		email = body.Email
		if email == "" {
			email = body.Username
		}
		return email, body.Password, email != ""
	}
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	email = r.PostFormValue("username")
	return email, r.PostFormValue("password"), email != ""
}

// bootstrap creates the first superuser. It refuses once any user exists.
func (s *Server) bootstrap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		FullName *string `json:"full_name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid email address")
		return
	}
	if body.Password == "" {
		WriteError(w, http.StatusUnprocessableEntity, "password is required")
		return
	}

	count, err := s.store.CountUsers()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		WriteError(w, http.StatusBadRequest, "Admin already initialized")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Cannot hash password")
		return
	}
	user := &storage.User{
		Email:          body.Email,
		HashedPassword: hash,
		FullName:       body.FullName,
		IsActive:       true,
		IsSuperuser:    true,
	}
	if err := s.store.CreateUser(user); err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusCreated, userToRead(user))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, userToRead(UserFrom(r.Context())))
}

// requireUser resolves the bearer token to an active user before calling
// next. With auth disabled it substitutes a built-in superuser.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if !user.IsActive {
			WriteError(w, http.StatusBadRequest, "Inactive user")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) authenticate(r *http.Request) (*storage.User, error) {
	if s.authDisabled {
		return devUser(), nil
	}

	raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || raw == "" {
		return nil, errInvalidCredentials
	}
	email, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, errInvalidCredentials
	}
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// devUser is the implicit account used when authentication is disabled.
func devUser() *storage.User {
	name := "开发模式用户"
	now := time.Now().UTC()
	return &storage.User{
		ID:             1,
		Email:          "dev@localhost",
		HashedPassword: "not-used",
		FullName:       &name,
		IsActive:       true,
		IsSuperuser:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
