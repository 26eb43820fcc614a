package domain

import "fmt"

// UserProfile is one of BusinessProfile, ConsumerProfile or CourierProfile.
type UserProfile interface {
	ProfileRole() Role
	profile()
}

type BusinessProfile struct {
	ID           string
	BusinessName string
	Address      string
	Phone        string
	PhotoURL     string
}

type ConsumerProfile struct {
	ID          string
	DisplayName string
	Phone       string
	PhotoURL    string
}

type CourierProfile struct {
	ID          string
	DisplayName string
	Phone       string
	PhotoURL    string
	VehicleType string
}

func (BusinessProfile) ProfileRole() Role { return RoleBusiness }
func (ConsumerProfile) ProfileRole() Role { return RoleConsumer }
func (CourierProfile) ProfileRole() Role  { return RoleCourier }

func (BusinessProfile) profile() {}
func (ConsumerProfile) profile() {}
func (CourierProfile) profile()  {}

// ProfileView is the response shape shared by all profile variants.
type ProfileView struct {
	ID       string            `json:"id"`
	Role     Role              `json:"role"`
	Name     string            `json:"name"`
	PhotoURL string            `json:"photo_url,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

func FormatProfile(p UserProfile) (ProfileView, error) {
	switch v := p.(type) {
	case BusinessProfile:
		return formatBusiness(v), nil
	case ConsumerProfile:
		return formatConsumer(v), nil
	case CourierProfile:
		return formatCourier(v), nil
	default:
		return ProfileView{}, fmt.Errorf("unsupported profile type %T", p)
	}
}

func formatBusiness(p BusinessProfile) ProfileView {
	return ProfileView{
		ID:       p.ID,
		Role:     RoleBusiness,
		Name:     p.BusinessName,
		PhotoURL: p.PhotoURL,
		Phone:    p.Phone,
		Details:  map[string]string{"address": p.Address},
	}
}

func formatConsumer(p ConsumerProfile) ProfileView {
	return ProfileView{
		ID:       p.ID,
		Role:     RoleConsumer,
		Name:     p.DisplayName,
		PhotoURL: p.PhotoURL,
		Phone:    p.Phone,
	}
}

func formatCourier(p CourierProfile) ProfileView {
	view := ProfileView{
		ID:       p.ID,
		Role:     RoleCourier,
		Name:     p.DisplayName,
		PhotoURL: p.PhotoURL,
		Phone:    p.Phone,
	}
	if p.VehicleType != "" {
		view.Details = map[string]string{"vehicle_type": p.VehicleType}
	}
	return view
}
