package repositories

import (
	"context"
	"errors"
	"fmt"

	"claudygod/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMAdminRepository is a GORM implementation of AdminRepository.
type GORMAdminRepository struct {
	db *gorm.DB
}

// NewGORMAdminRepository creates a new instance of GORMAdminRepository.
func NewGORMAdminRepository(db *gorm.DB) *GORMAdminRepository {
	return &GORMAdminRepository{
		db: db,
	}
}

// Create creates a new admin in the database.
func (r *GORMAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return persistenceErr("create admin", err)
	}
	return nil
}

// GetByUsername retrieves an admin by username.
func (r *GORMAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.first(ctx, "username = ?", username)
}

// GetByID retrieves an admin by id.
func (r *GORMAdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GORMAdminRepository) first(ctx context.Context, cond string, arg string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("admin %s: %w", arg, ErrNotFound)
		}
		return nil, persistenceErr("get admin", err)
	}
	return &admin, nil
}
