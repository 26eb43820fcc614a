package domain

type Role string

const (
	RoleConsumer Role = "CONSUMER"
	RoleBusiness Role = "BUSINESS"
	RoleCourier  Role = "COURIER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleBusiness, RoleCourier:
		return true
	default:
		return false
	}
}

// Actor is the authenticated identity a request acts as.
type Actor struct {
	ID   string `json:"user_id"`
	Role Role   `json:"role"`
}
