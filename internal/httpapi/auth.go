package httpapi

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/feelsunbreeze/student_dashboard/internal/identity"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes and validates a JSON body.
func bind(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type statusRequest struct {
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
}

// session is what the browser keeps after signing in. User hides its tokens
// from JSON, so they are copied out here.
type session struct {
	User         identity.User `json:"user"`
	IDToken      string        `json:"id_token"`
	RefreshToken string        `json:"refresh_token"`
}

func newSession(u identity.User) session {
	return session{User: u, IDToken: u.IDToken, RefreshToken: u.RefreshToken}
}

type tokenPair struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *server) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("signed in", "user", u.LocalID, "verified", u.Verified)
	s.writeJSON(w, http.StatusOK, newSession(u))
}

func (s *server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.auth.SignUp(r.Context(), req.Email, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("account created", "user", u.LocalID)
	s.writeJSON(w, http.StatusCreated, newSession(u))
}

func (s *server) sendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.auth.SendPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent."})
}

func (s *server) resendVerification(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.auth.ResendVerification(r.Context(), token); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Verification email sent."})
}

func (s *server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	t, err := s.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenPair{
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		UserID:       t.UserID,
		ExpiresIn:    int64(t.ExpiresIn / time.Second),
	})
}

// refreshStatus re-reads the verification flag for the bearer's account.
func (s *server) refreshStatus(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.auth.RefreshStatus(r.Context(), identity.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		IDToken:      token,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSession(u))
}
