package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/michaeltuccillo/taskd/internal/store"
	"github.com/michaeltuccillo/taskd/internal/task"
)

/* ===================== Public JSON (API) ====================== */

type taskDTO struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	DueDate   string        `json:"dueDate"` // YYYY-MM-DD
	Category  task.Category `json:"category"`
	UserID    *uint         `json:"userId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func toPublic(t store.Task) taskDTO {
	return taskDTO{
		ID:        t.ID,
		Name:      t.Name,
		DueDate:   task.FormatDueDate(t.DueDate),
		Category:  t.Category,
		UserID:    t.UserID,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func toPublicList(tasks []store.Task) []taskDTO {
	out := make([]taskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toPublic(t))
	}
	return out
}

/* ===================== Helpers ====================== */

// sessionScope is the owner scope of the signed-in user, or the unowned
// scope when there is none.
func (s *Server) sessionScope(r *http.Request) (store.Scope, bool, error) {
	u, err := s.sessions.Current(r)
	if err != nil {
		return store.Scope{}, false, err
	}
	if u == nil {
		return store.Scope{}, false, nil
	}
	return store.Owner(u.ID), true, nil
}

func parseTaskID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func parseFilter(r *http.Request, now time.Time) (store.Filter, string) {
	q := r.URL.Query()
	var f store.Filter

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c, ok := task.ParseCategory(v)
		if !ok {
			return f, task.MsgInvalidCat
		}
		f.Category = c
	}

	w, ok := task.ParseDueWindow(q.Get("due"))
	if !ok {
		return f, "invalid due filter"
	}
	if from, to, ok := w.Range(now); ok {
		f.DueFrom, f.DueTo = from, to
	}

	f.Search = q.Get("search")
	return f, ""
}

func writeValidation(w http.ResponseWriter, err error) {
	msg := task.MsgMissingFields
	var verr *task.ValidationError
	if errors.As(err, &verr) {
		msg = verr.Message
	}
	errorJSON(w, http.StatusBadRequest, msg)
}

/* ===================== HTTP: list/create ====================== */

// GET /tasks?category=&due=&search=&userId=
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	sc, signedIn, err := s.sessionScope(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}
	if !signedIn {
		if v := strings.TrimSpace(r.URL.Query().Get("userId")); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil || id == 0 {
				errorJSON(w, http.StatusBadRequest, "invalid user id")
				return
			}
			sc = store.Owner(uint(id))
		}
	}

	f, msg := parseFilter(r, s.now())
	if msg != "" {
		errorJSON(w, http.StatusBadRequest, msg)
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), sc, f)
	if err != nil {
		s.logError(r, "list tasks", err)
		errorJSON(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}
	writeJSON(w, http.StatusOK, toPublicList(tasks))
}

// POST /tasks {task|name, dueDate, category}
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in task.Input
	if err := decodeJSON(w, r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	fields, err := in.Validate()
	if err != nil {
		writeValidation(w, err)
		return
	}

	sc, _, err := s.sessionScope(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	created, err := s.store.CreateTask(r.Context(), sc, fields)
	if err != nil {
		s.logError(r, "create task", err)
		errorJSON(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, toPublic(*created))
}

// GET /tasks/summary
func (s *Server) handleTaskSummary(w http.ResponseWriter, r *http.Request) {
	sc, _, err := s.sessionScope(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to summarize tasks")
		return
	}

	counts, err := s.store.CountByCategory(r.Context(), sc)
	if err != nil {
		s.logError(r, "count tasks", err)
		errorJSON(w, http.StatusInternalServerError, "failed to summarize tasks")
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "categories": counts})
}

/* ===================== HTTP: item ====================== */

// GET /tasks/{id}
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}
	sc, _, err := s.sessionScope(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	t, err := s.store.GetTask(r.Context(), sc, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "task not found")
	case err != nil:
		s.logError(r, "get task", err)
		errorJSON(w, http.StatusInternalServerError, "failed to fetch task")
	default:
		writeJSON(w, http.StatusOK, toPublic(*t))
	}
}

// PUT /tasks/{id} {name, dueDate, category}
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in task.Input
	if err := decodeJSON(w, r, &in); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	fields, err := in.Validate()
	if err != nil {
		writeValidation(w, err)
		return
	}

	sc, _, err := s.sessionScope(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	t, err := s.store.UpdateTask(r.Context(), sc, id, fields)
	switch {
	case errors.Is(err, store.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "task not found")
	case err != nil:
		s.logError(r, "update task", err)
		errorJSON(w, http.StatusInternalServerError, "failed to update task")
	default:
		writeJSON(w, http.StatusOK, toPublic(*t))
	}
}

// DELETE /tasks/{id}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(r)
	if !ok {
		errorJSON(w, http.StatusBadRequest, "invalid id")
		return
	}
	sc, _, err := s.sessionScope(r)
	if err != nil {
		s.logError(r, "resolve session", err)
		errorJSON(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	err = s.store.DeleteTask(r.Context(), sc, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "task not found")
	case err != nil:
		s.logError(r, "delete task", err)
		errorJSON(w, http.StatusInternalServerError, "failed to delete task")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "task deleted"})
	}
}
