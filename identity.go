package shire

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName    = "shire_session"
	sessionUserKey = "user_id"
	contextUserKey = "shire.user_id"
)

// IdentityClaims are the bearer token claims issued by the identity provider.
// The subject is the user id.
type IdentityClaims struct {
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Picture    string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// User maps the claims to the user record that is upserted on sign-in.
func (c IdentityClaims) User() User {
	return User{
		ID:              c.Subject,
		Email:           c.Email,
		FirstName:       c.GivenName,
		LastName:        c.FamilyName,
		ProfileImageURL: c.Picture,
	}
}

// IssueToken signs an HS256 identity token for u that expires after ttl.
func IssueToken(secret string, u User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("shire: identity secret is not configured")
	}
	now := time.Now()
	claims := IdentityClaims{
		Email:      u.Email,
		GivenName:  u.FirstName,
		FamilyName: u.LastName,
		Picture:    u.ProfileImageURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyToken checks the signature and expiry of raw and returns its claims.
func VerifyToken(secret, raw string) (*IdentityClaims, error) {
	if secret == "" {
		return nil, ErrUnauthorized
	}
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) < 8 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[7:]), true
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// identityMiddleware resolves the current user from a bearer token or the
// session cookie. A valid token upserts the user it describes.
func (a *App) identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if raw, ok := bearerToken(c.Request()); ok {
			claims, err := VerifyToken(a.Config.IdentitySecret, raw)
			if err != nil {
				a.Logger.Debug().Err(err).Str("ip", c.RealIP()).Msg("rejected bearer token")
				return apiMessage(c, http.StatusUnauthorized, "Unauthorized", "")
			}
			user, err := a.Store.UpsertUser(c.Request().Context(), claims.User())
			if err != nil {
				return err
			}
			c.Set(contextUserKey, user.ID)
			return next(c)
		}
		if sess, err := session.Get(sessionName, c); err == nil {
			if id, ok := sess.Values[sessionUserKey].(string); ok && id != "" {
				c.Set(contextUserKey, id)
			}
		}
		return next(c)
	}
}

// UserID is the id of the authenticated user, or "" for anonymous requests.
func UserID(c echo.Context) string {
	id, _ := c.Get(contextUserKey).(string)
	return id
}

// IsAuthenticated reports whether the request carries a signed-in user.
func IsAuthenticated(c echo.Context) bool {
	return UserID(c) != ""
}

func startSession(c echo.Context, userID string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionUserKey] = userID
	c.Set(contextUserKey, userID)
	return sess.Save(c.Request(), c.Response())
}

func endSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, sessionUserKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// requireAuthHTML sends anonymous visitors to the login entry point.
func (a *App) requireAuthHTML(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAuthenticated(c) {
			return c.Redirect(http.StatusSeeOther, "/api/login")
		}
		return next(c)
	}
}

// requireAuthAPI rejects anonymous API calls with 401.
func (a *App) requireAuthAPI(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsAuthenticated(c) {
			return apiMessage(c, http.StatusUnauthorized, "Unauthorized", "")
		}
		return next(c)
	}
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		a.Logger.Warn().Str("ip", ip).Msg("login rate limited")
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.AdminLogin(LoginPage{
			Page:    a.page(c, PageMeta{Title: "Sign in"}),
			Limited: true,
		}))
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(ip)
		return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(LoginPage{
			Page:   a.page(c, PageMeta{Title: "Sign in"}),
			Failed: true,
		}))
	}
	user, err := a.Store.UpsertUser(c.Request().Context(), User{
		ID:        a.Config.AdminUserID,
		Email:     a.Config.AdminEmail,
		FirstName: a.Config.Author,
	})
	if err != nil {
		return err
	}
	if err := startSession(c, user.ID); err != nil {
		return err
	}
	a.Logger.Info().Str("user", user.ID).Str("ip", ip).Msg("admin signed in")
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if err := endSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleLoginRedirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, a.Config.LoginURL)
}

func (a *App) handleLogoutRedirect(c echo.Context) error {
	if err := endSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

// handleCallback completes a sign-in from the identity provider: it verifies
// the token, upserts the user and starts a session.
func (a *App) handleCallback(c echo.Context) error {
	claims, err := VerifyToken(a.Config.IdentitySecret, c.QueryParam("token"))
	if err != nil {
		return apiMessage(c, http.StatusUnauthorized, "Unauthorized", "")
	}
	user, err := a.Store.UpsertUser(c.Request().Context(), claims.User())
	if err != nil {
		return err
	}
	if err := startSession(c, user.ID); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/")
}

func (a *App) handleAuthUser(c echo.Context) error {
	user, ok, err := a.Store.GetUser(c.Request().Context(), UserID(c))
	if err != nil {
		return err
	}
	if !ok {
		return apiMessage(c, http.StatusUnauthorized, "Unauthorized", "")
	}
	return c.JSON(http.StatusOK, user)
}
