package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/michaeltuccillo/taskd/internal/task"
)

// Scope restricts task operations to one owner. The zero value is the
// unowned scope (tasks with no user).
type Scope struct {
	UserID *uint
}

// Owner scopes to tasks owned by id.
func Owner(id uint) Scope { return Scope{UserID: &id} }

func (sc Scope) apply(db *gorm.DB) *gorm.DB {
	if sc.UserID == nil {
		return db.Where("user_id IS NULL")
	}
	return db.Where("user_id = ?", *sc.UserID)
}

// Filter narrows ListTasks. Zero fields do not filter.
type Filter struct {
	Category task.Category
	// DueFrom and DueTo are inclusive calendar dates.
	DueFrom, DueTo time.Time
	Search         string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListTasks returns the tasks in scope, most recently created first.
func (s *Store) ListTasks(ctx context.Context, sc Scope, f Filter) ([]Task, error) {
	q := sc.apply(s.db.WithContext(ctx).Model(&Task{}))
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if !f.DueFrom.IsZero() {
		q = q.Where("due_date >= ?", f.DueFrom)
	}
	if !f.DueTo.IsZero() {
		q = q.Where("due_date <= ?", f.DueTo)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
	}

	tasks := []Task{}
	if err := q.Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", translate(err))
	}
	return tasks, nil
}

// CreateTask writes a new task owned by the scope's user.
func (s *Store) CreateTask(ctx context.Context, sc Scope, f task.Fields) (*Task, error) {
	t := &Task{
		Name:     f.Name,
		DueDate:  f.DueDate,
		Category: f.Category,
		UserID:   sc.UserID,
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", translate(err))
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, sc Scope, id uint) (*Task, error) {
	var t Task
	if err := sc.apply(s.db.WithContext(ctx)).First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("task %d: %w", id, translate(err))
	}
	return &t, nil
}

// UpdateTask replaces name, due date and category of an existing task. The
// existence check and the write share one transaction; a miss writes nothing.
func (s *Store) UpdateTask(ctx context.Context, sc Scope, id uint, f task.Fields) (*Task, error) {
	var t Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := sc.apply(tx).First(&t, "id = ?", id).Error; err != nil {
			return err
		}
		t.Name = f.Name
		t.DueDate = f.DueDate
		t.Category = f.Category
		return tx.Save(&t).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, translate(err))
	}
	return &t, nil
}

// DeleteTask removes a task. Zero affected rows is ErrNotFound.
func (s *Store) DeleteTask(ctx context.Context, sc Scope, id uint) error {
	res := sc.apply(s.db.WithContext(ctx)).Where("id = ?", id).Delete(&Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task %d: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountByCategory tallies tasks in scope. Every category is present in the
// result, zero when it has no tasks.
func (s *Store) CountByCategory(ctx context.Context, sc Scope) (map[task.Category]int64, error) {
	var rows []struct {
		Category task.Category
		N        int64
	}
	err := sc.apply(s.db.WithContext(ctx).Model(&Task{})).
		Select("category, COUNT(*) AS n").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", translate(err))
	}

	out := make(map[task.Category]int64, len(task.Categories))
	for _, c := range task.Categories {
		out[c] = 0
	}
	for _, r := range rows {
		out[r.Category] = r.N
	}
	return out, nil
}
