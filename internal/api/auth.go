package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/michaeltuccillo/taskd/internal/store"
)

// --------- DTOs ---------

type userDTO struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func toDTO(u store.User) userDTO {
	return userDTO{ID: u.ID, Email: u.Email, Username: u.Username}
}

// parseForm accepts urlencoded and multipart bodies.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

func signUpResult(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// --------- Handlers ---------

// POST /sign-up (form: email, username, password)
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		signUpResult(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if email == "" || username == "" || password == "" {
		signUpResult(w, http.StatusBadRequest, "missing fields")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		signUpResult(w, http.StatusBadRequest, "password too long")
		return
	}
	if err != nil {
		s.logError(r, "hash password", err)
		signUpResult(w, http.StatusInternalServerError, "sign-up failed")
		return
	}

	u := store.User{Email: email, Username: username, Password: string(hash)}
	err = s.store.CreateUser(r.Context(), &u)
	if errors.Is(err, store.ErrDuplicate) {
		s.logger.Info("sign-up rejected: email taken", zap.String("request_id", requestIDFrom(r.Context())))
		signUpResult(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.logError(r, "create user", err)
		signUpResult(w, http.StatusInternalServerError, "sign-up failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": toDTO(u)})
}

// POST /sign-in (form: email, password)
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		errorJSON(w, http.StatusBadRequest, "missing fields")
		return
	}

	u, err := s.store.UserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		errorJSON(w, http.StatusUnauthorized, "invalid email or password")
		return
	} else if err != nil {
		s.logError(r, "find user", err)
		errorJSON(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := s.sessions.Set(w, u.ID); err != nil {
		s.logError(r, "issue session", err)
		errorJSON(w, http.StatusInternalServerError, "sign-in failed")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(*u))
}

// POST /sign-out
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// GET /me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.sessions.Current(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if u == nil {
		errorJSON(w, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(*u))
}
