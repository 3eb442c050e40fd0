package http

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// authed rejects requests without a valid bearer token and stores the
// caller's id in the request context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, fmt.Errorf("missing bearer token: %w", core.ErrUnauthenticated))
			return
		}
		userID, err := s.deps.Auth.VerifyToken(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, r, err)
			return
		}
		ctx := withUserID(r.Context(), userID)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, userID)
		next.ServeHTTP(w, r.WithContext(applog.WithLogger(ctx, logger)))
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password, sanitizeInput(req.FullName))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleToken follows the OAuth2 password grant: a form with username and
// password. JSON bodies with email or username are accepted too.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	email, password, err := credentials(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := s.deps.Auth.Verify(r.Context(), email, password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, err)
		return
	}
	token, expires, err := s.deps.Auth.IssueToken(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expires})
}

func credentials(w http.ResponseWriter, r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			return "", "", err
		}
		email := body.Email
		if email == "" {
			email = body.Username
		}
		return strings.TrimSpace(email), body.Password, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return "", "", fmt.Errorf("%w: invalid form body", core.ErrInvalidInput)
	}
	if gt := r.PostForm.Get("grant_type"); gt != "" && gt != "password" {
		return "", "", fmt.Errorf("%w: unsupported grant_type %q", core.ErrInvalidInput, gt)
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	if username == "" || r.PostForm.Get("password") == "" {
		return "", "", errors.Join(core.ErrInvalidInput, errors.New("username and password are required"))
	}
	return username, r.PostForm.Get("password"), nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Auth.User(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
