package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaeltuccillo/taskd/internal/session"
	"github.com/michaeltuccillo/taskd/internal/task"
)

type body map[string]any

func listNames(t *testing.T, e *testEnv, path string, cookies ...*http.Cookie) []string {
	t.Helper()
	rec := e.do(t, http.MethodGet, path, nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var names []string
	for _, tk := range decode[[]taskDTO](t, rec) {
		names = append(names, tk.Name)
	}
	return names
}

func TestTaskLifecycle(t *testing.T) {
	e := newTestEnv(t, session.Options{})

	rec := e.do(t, http.MethodPost, "/tasks", body{"name": "Pay rent", "dueDate": "2025-01-15", "category": "Urgent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[taskDTO](t, rec)
	require.NotZero(t, created.ID)
	assert.Nil(t, created.UserID)

	itemPath := fmt.Sprintf("/tasks/%d", created.ID)

	rec = e.do(t, http.MethodGet, itemPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[taskDTO](t, rec)
	assert.Equal(t, "Pay rent", got.Name)
	assert.Equal(t, "2025-01-15", got.DueDate)
	assert.Equal(t, task.Urgent, got.Category)

	rec = e.do(t, http.MethodPut, itemPath, body{"name": "Pay rent (paid)", "dueDate": "2025-01-15", "category": "Urgent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[taskDTO](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Pay rent (paid)", updated.Name)

	rec = e.do(t, http.MethodDelete, itemPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["success"])

	rec = e.do(t, http.MethodGet, itemPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", errorMessage(t, rec))
}

func TestCreateTask_TaskKeyAndApiPrefix(t *testing.T) {
	e := newTestEnv(t, session.Options{})

	rec := e.do(t, http.MethodPost, "/api/tasks", body{"task": "  Gym  ", "dueDate": "2025-03-01", "category": "Personal"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Gym", decode[taskDTO](t, rec).Name)

	assert.Equal(t, []string{"Gym"}, listNames(t, e, "/tasks"))
}

func TestListTasks_NewestFirst(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	for _, n := range []string{"T1", "T2", "T3"} {
		rec := e.do(t, http.MethodPost, "/tasks", body{"name": n, "dueDate": "2025-01-15", "category": "Work"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, []string{"T3", "T2", "T1"}, listNames(t, e, "/tasks"))
}

func TestListTasks_EmptyArray(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	rec := e.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateTask_Validation(t *testing.T) {
	e := newTestEnv(t, session.Options{})

	tests := []struct {
		name string
		in   any
		msg  string
	}{
		{"missing fields", body{"name": "x"}, "missing fields"},
		{"whitespace name", body{"name": "   ", "dueDate": "2025-01-15", "category": "Work"}, "task name cannot be empty"},
		{"bad date", body{"name": "x", "dueDate": "not-a-date", "category": "Work"}, "invalid due date"},
		{"unknown category", body{"name": "x", "dueDate": "2025-01-15", "category": "Errands"}, "invalid category"},
		{"malformed json", `{"name":`, "invalid json"},
		{"empty body", "", "invalid json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/tasks", tt.in)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, errorMessage(t, rec))
		})
	}

	assert.Empty(t, listNames(t, e, "/tasks"), "rejected creates must not write")
}

func TestItem_InvalidID(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	valid := body{"name": "x", "dueDate": "2025-01-15", "category": "Work"}

	for _, path := range []string{"/tasks/abc", "/tasks/0", "/tasks/-1", "/tasks/1.5"} {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			t.Run(method+" "+path, func(t *testing.T) {
				var b any
				if method == http.MethodPut {
					b = valid
				}
				rec := e.do(t, method, path, b)
				require.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, "invalid id", errorMessage(t, rec))
			})
		}
	}
}

func TestItem_NotFound(t *testing.T) {
	e := newTestEnv(t, session.Options{})

	rec := e.do(t, http.MethodGet, "/tasks/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPut, "/tasks/99", body{"name": "x", "dueDate": "2025-01-15", "category": "Work"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, listNames(t, e, "/tasks"), "update of a missing id must not write")

	rec = e.do(t, http.MethodDelete, "/tasks/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "task not found", errorMessage(t, rec))
}

func TestUpdateTask_ValidatesBeforeLookup(t *testing.T) {
	e := newTestEnv(t, session.Options{})

	rec := e.do(t, http.MethodPut, "/tasks/99", body{"name": "x", "dueDate": "soon", "category": "Work"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid due date", errorMessage(t, rec))
}

func TestUpdateTask_RejectsUnknownCategory(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	rec := e.do(t, http.MethodPost, "/tasks", body{"name": "x", "dueDate": "2025-01-15", "category": "Work"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[taskDTO](t, rec).ID

	rec = e.do(t, http.MethodPut, fmt.Sprintf("/tasks/%d", id), body{"name": "x", "dueDate": "2025-01-15", "category": "Someday"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil)
	assert.Equal(t, task.Work, decode[taskDTO](t, rec).Category)
}

func TestListTasks_Filters(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	e.srv.now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }

	for _, b := range []body{
		{"name": "Pay rent", "dueDate": "2025-01-15", "category": "Urgent"},
		{"name": "Gym", "dueDate": "2025-01-20", "category": "Personal"},
		{"name": "Report", "dueDate": "2025-02-10", "category": "Work"},
		{"name": "Old", "dueDate": "2024-12-01", "category": "Work"},
	} {
		rec := e.do(t, http.MethodPost, "/tasks", b)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	assert.Equal(t, []string{"Old", "Report"}, listNames(t, e, "/tasks?category=Work"))
	assert.Equal(t, []string{"Pay rent"}, listNames(t, e, "/tasks?due=today"))
	assert.Equal(t, []string{"Gym", "Pay rent"}, listNames(t, e, "/tasks?due=week"))
	assert.Equal(t, []string{"Report", "Gym", "Pay rent"}, listNames(t, e, "/tasks?due=month"))
	assert.Equal(t, []string{"Pay rent"}, listNames(t, e, "/tasks?search=RENT"))

	rec := e.do(t, http.MethodGet, "/tasks?category=Chores", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, http.MethodGet, "/tasks?due=decade", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid due filter", errorMessage(t, rec))
}

func TestTasks_ScopedToSessionUser(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	alice := e.signUpAndIn(t, "alice@example.com")
	bob := e.signUpAndIn(t, "bob@example.com")

	rec := e.do(t, http.MethodPost, "/tasks", body{"name": "alice's", "dueDate": "2025-01-15", "category": "Work"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	mine := decode[taskDTO](t, rec)
	require.NotNil(t, mine.UserID)

	rec = e.do(t, http.MethodPost, "/tasks", body{"name": "anonymous", "dueDate": "2025-01-15", "category": "Work"})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, []string{"alice's"}, listNames(t, e, "/tasks", alice))
	assert.Empty(t, listNames(t, e, "/tasks", bob))
	assert.Equal(t, []string{"anonymous"}, listNames(t, e, "/tasks"))

	itemPath := fmt.Sprintf("/tasks/%d", mine.ID)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, itemPath, nil, bob).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, itemPath, nil, bob).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, itemPath, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, itemPath, nil, alice).Code)
}

func TestListTasks_UserIDQuery(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	alice := e.signUpAndIn(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/tasks", body{"name": "alice's", "dueDate": "2025-01-15", "category": "Work"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	owner := *decode[taskDTO](t, rec).UserID

	assert.Equal(t, []string{"alice's"}, listNames(t, e, fmt.Sprintf("/tasks?userId=%d", owner)))

	rec = e.do(t, http.MethodGet, "/tasks?userId=me", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskSummary(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	for _, c := range []string{"Work", "Urgent", "Urgent"} {
		rec := e.do(t, http.MethodPost, "/tasks", body{"name": "x", "dueDate": "2025-01-15", "category": c})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := e.do(t, http.MethodGet, "/tasks/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"categories":{"Work":1,"Personal":0,"Urgent":2}}`, rec.Body.String())
}

func TestTasks_StoreFailureIsGeneric(t *testing.T) {
	e := newTestEnv(t, session.Options{})
	require.NoError(t, e.store.Close())

	rec := e.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to fetch tasks", errorMessage(t, rec))

	rec = e.do(t, http.MethodPost, "/tasks", body{"name": "x", "dueDate": "2025-01-15", "category": "Work"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to create task", errorMessage(t, rec))
}
