package repositories

import (
	"context"
	"errors"

	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistsByUsernameOrEmail uses exact, case-sensitive comparison.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// Delete is only used to undo a signup that could not issue a session.
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	// Delete is a no-op when the session does not exist.
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// TaskRepository lookups always take the owner: a task owned by someone else
// is reported as ErrRecordNotFound.
type TaskRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Save(ctx context.Context, task *models.Task) error
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Session{}, &models.Task{})
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
