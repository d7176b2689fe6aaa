package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/models"
	"example.com/sqliteblog/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserCtxKey = contextKey("user")

// LoginPath is where LoginRequired sends anonymous callers.
const LoginPath = "/auth/login"

type sessionClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserFinder resolves the user a session token points at.
type UserFinder interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// Sessions issues and verifies the signed session cookie. When Users is set every
// session is checked against the stored user.
type Sessions struct {
	Secret []byte
	Cookie string
	TTL    time.Duration
	Users  UserFinder
}

// Issue returns a signed token for user.
func (s Sessions) Issue(user models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.TTL)),
		},
	})
	return token.SignedString(s.Secret)
}

// Parse validates a token and returns the identity it carries.
func (s Sessions) Parse(tokenStr string) (models.User, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return models.User{}, errors.New("invalid token")
	}
	if claims.UserID <= 0 {
		return models.User{}, errors.New("invalid user_id in token")
	}
	return models.User{ID: claims.UserID, Username: claims.Username}, nil
}

// SetCookie starts a session for user.
func (s Sessions) SetCookie(w http.ResponseWriter, user models.User) error {
	tokenStr, err := s.Issue(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Cookie,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie ends the session.
func (s Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load puts the identity of a valid session cookie into the request context. Requests
// without a valid cookie, or whose user no longer exists, continue anonymously.
func (s Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(s.Cookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.Parse(c.Value)
		if err != nil {
			logger.FromContext(r.Context()).Debug("middleware", "Ignoring invalid session cookie")
			next.ServeHTTP(w, r)
			return
		}

		if s.Users != nil {
			stored, err := s.Users.GetUserByID(r.Context(), user.ID)
			switch {
			case errors.Is(err, store.ErrNotFound), err == nil && stored.Username != user.Username:
				logger.FromContext(r.Context()).Debug("middleware", "Session points at an unknown user, dropping it")
				s.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			case err != nil:
				logger.FromContext(r.Context()).Error("middleware", "Failed to load session user", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			user = stored
		}

		ctx := WithUser(r.Context(), user)
		ctx = logger.ContextWithIdentity(ctx, strconv.FormatInt(user.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoginRequired redirects anonymous callers to the login view.
func LoginRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a context carrying user as the current identity.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, UserCtxKey, user)
}

// CurrentUser returns the identity of the request, if any.
func CurrentUser(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(UserCtxKey).(models.User)
	return u, ok
}
