package repositories

import (
	"context"

	"claudygod/internal/models"
)

// AdminRepository defines the interface for admin account access.
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	GetByID(ctx context.Context, id string) (*models.Admin, error)
}
