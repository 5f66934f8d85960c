package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const msgTaskNotFound = "task not found or access denied"

type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
}

// UpdateTaskInput fields left empty keep the stored value.
type UpdateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
}

// TaskService operations are all scoped to the owner resolved by the
// session guard. A task that exists but belongs to someone else yields the
// same ErrNotFound as a missing one.
type TaskService interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	Get(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*models.Task, error)
	Update(ctx context.Context, userID uuid.UUID, taskID string, input UpdateTaskInput) (*models.Task, error)
	Delete(ctx context.Context, userID uuid.UUID, taskID string) error
	ToggleComplete(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error)
}

type TaskServiceImpl struct {
	tasks repositories.TaskRepository

	// mu serializes read-modify-write cycles so concurrent toggles are not lost.
	mu  sync.Mutex
	now func() time.Time
}

func NewTaskService(tasks repositories.TaskRepository) *TaskServiceImpl {
	return &TaskServiceImpl{tasks: tasks, now: time.Now}
}

func (s *TaskServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	return s.findOwned(ctx, userID, taskID)
}

func (s *TaskServiceImpl) Create(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" || input.Description == "" {
		return nil, newError(ErrValidation, "title and description are required")
	}
	status := input.Status
	if status == "" {
		status = models.StatusPending
	}
	if !status.Valid() {
		return nil, invalidStatus(status)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task ID: %w", err)
	}
	now := s.now()
	task := &models.Task{
		ID:          id,
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		IsComplete:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *TaskServiceImpl) Update(ctx context.Context, userID uuid.UUID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, invalidStatus(input.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != "" {
		task.Title = input.Title
	}
	if input.Description != "" {
		task.Description = input.Description
	}
	if input.Status != "" {
		task.Status = input.Status
	}
	task.UpdatedAt = s.now()

	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) Delete(ctx context.Context, userID uuid.UUID, taskID string) error {
	id, err := uuid.FromString(taskID)
	if err != nil {
		return newError(ErrNotFound, msgTaskNotFound)
	}
	if err := s.tasks.DeleteOwned(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return newError(ErrNotFound, msgTaskNotFound)
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *TaskServiceImpl) ToggleComplete(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	task.Toggle()
	task.UpdatedAt = s.now()

	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) findOwned(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	id, err := uuid.FromString(taskID)
	if err != nil {
		return nil, newError(ErrNotFound, msgTaskNotFound)
	}
	task, err := s.tasks.FindOwned(ctx, id, userID)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, newError(ErrNotFound, msgTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func (s *TaskServiceImpl) save(ctx context.Context, task *models.Task) error {
	if err := s.tasks.Save(ctx, task); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return newError(ErrNotFound, msgTaskNotFound)
		}
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func invalidStatus(status models.TaskStatus) error {
	return newError(ErrValidation, fmt.Sprintf("invalid status %q: must be one of pending, in-progress, complete", status))
}
