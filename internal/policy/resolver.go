package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"gorm.io/gorm"
)

// DBCallerResolver loads the caller behind a user id.
type DBCallerResolver struct {
	db *gorm.DB
}

func NewDBCallerResolver(db *gorm.DB) *DBCallerResolver {
	return &DBCallerResolver{db: db}
}

// Resolve returns the caller for userID. The representative link is only
// set when the user's representative is active, so an inactive
// representative sees no orders.
func (r *DBCallerResolver) Resolve(ctx context.Context, userID uint) (*auth.Caller, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Representative").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, services.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c := &auth.Caller{UserID: user.ID, Staff: user.IsStaff}
	if rep := user.Representative; rep != nil && rep.Active {
		id := rep.ID
		c.RepresentativeID = &id
	}
	return c, nil
}
