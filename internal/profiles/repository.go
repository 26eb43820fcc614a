package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// Repository reads profiles from the users table owned by the user service.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	var role domain.Role
	var displayName, photoURL, phone, businessName, addr, vehicleType string

	err := r.db.QueryRowContext(ctx, `
		SELECT role, display_name, photo_url, phone_number, business_name, address, vehicle_type
		FROM users
		WHERE id = $1
	`, userID).Scan(&role, &displayName, &photoURL, &phone, &businessName, &addr, &vehicleType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	switch role {
	case domain.RoleBusiness:
		return domain.BusinessProfile{ID: userID, BusinessName: businessName, Address: addr, Phone: phone, PhotoURL: photoURL}, nil
	case domain.RoleConsumer:
		return domain.ConsumerProfile{ID: userID, DisplayName: displayName, Phone: phone, PhotoURL: photoURL}, nil
	case domain.RoleCourier:
		return domain.CourierProfile{ID: userID, DisplayName: displayName, Phone: phone, PhotoURL: photoURL, VehicleType: vehicleType}, nil
	default:
		return nil, fmt.Errorf("user %s has unknown role %q", userID, role)
	}
}
