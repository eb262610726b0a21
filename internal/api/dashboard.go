package api

import (
	"net/http"

	"github.com/michaeltuccillo/taskd/internal/store"
)

// GET / is the signed-in home view. Without a session it sends the caller
// to the sign-in page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u, err := s.sessions.Current(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if u == nil {
		http.Redirect(w, r, s.opts.SignInPath, http.StatusSeeOther)
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), store.Owner(u.ID), store.Filter{})
	if err != nil {
		s.logError(r, "list tasks", err)
		errorJSON(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  toDTO(*u),
		"tasks": toPublicList(tasks),
	})
}
