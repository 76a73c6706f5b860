package domain

import "time"

const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanVerify reports whether the principal may manually approve or reject
// attendance for the event. Admins always may; moderators only for events
// they created themselves.
func CanVerify(principal User, event Event) bool {
	switch principal.Role {
	case RoleAdmin:
		return true
	case RoleModerator:
		return event.CreatedBy == principal.ID
	default:
		return false
	}
}
