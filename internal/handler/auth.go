package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ohmbajaj/Neurotune-Backend/internal/auth"
	"github.com/ohmbajaj/Neurotune-Backend/internal/service"
)

// AuthHandler serves registration, login and the Spotify OAuth flow.
//
//   - HandleRegister / HandleLogin → issue a session token (cookie + body)
//   - HandleLogout                 → clear the cookie
//   - HandleMe                     → the caller's profile
//   - HandleSpotifyAuth            → consent URL, state bound to the caller
//   - HandleSpotifyCallback        → store tokens, redirect to the frontend
type AuthHandler struct {
	auth         *service.AuthService
	frontendURL  string
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. frontendURL is where the browser
// lands after connecting Spotify.
func NewAuthHandler(svc *service.AuthService, frontendURL string, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         svc,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.sendToken(w, res.Token)
}

// HandleLogin checks credentials.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.sendToken(w, res.Token)
}

// HandleLogout clears the session cookie. The token itself stays valid
// until it expires.
//
// HTTP: GET /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w)
	writeData(w, struct{}{})
}

// HandleMe returns the caller's profile. Secrets never serialise.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, user)
}

// HandleSpotifyAuth returns the Spotify consent URL for the caller.
//
// HTTP: GET /api/auth/spotify
func (h *AuthHandler) HandleSpotifyAuth(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.auth.SpotifyAuthURL(id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, u)
}

// HandleSpotifyCallback is where Spotify sends the browser back to. It is
// unauthenticated: the user is identified by the signed state parameter.
//
// HTTP: GET /api/auth/spotify/callback?code=...&state=...
func (h *AuthHandler) HandleSpotifyCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Info("spotify authorization declined", slog.String("reason", e))
		http.Redirect(w, r, h.frontendURL+"/spotify-error", http.StatusFound)
		return
	}

	if err := h.auth.CompleteSpotifyAuth(r.Context(), q.Get("code"), q.Get("state")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	http.Redirect(w, r, h.frontendURL+"/spotify-success", http.StatusFound)
}

func (h *AuthHandler) sendToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.auth.SessionTTL(),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, Response{Success: true, Token: token})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	clearSessionCookie(w, h.cookieSecure)
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
