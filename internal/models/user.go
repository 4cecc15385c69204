package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// UserRole is the account role reported by the backend. Roles this client
// does not know about decode to RoleUnknown instead of failing.
type UserRole string

const (
	RoleCoach    UserRole = "coach"
	RoleAttendee UserRole = "attendee"
	RoleAdmin    UserRole = "admin"
	RoleUnknown  UserRole = "unknown"
)

func (r *UserRole) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = RoleUnknown
		return nil
	}

	switch UserRole(raw) {
	case RoleCoach, RoleAttendee, RoleAdmin:
		*r = UserRole(raw)
	default:
		*r = RoleUnknown
	}
	return nil
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      UserRole  `json:"role"`
}

func (u User) IsCoach() bool { return u.Role == RoleCoach }

type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// AvatarUploadURLResponse is step one of the avatar choreography: a
// pre-signed target to PUT raw bytes to and the final asset address to
// persist on the profile afterwards.
type AvatarUploadURLResponse struct {
	UploadURL     string `json:"upload_url"`
	FinalImageURL string `json:"final_image_url"`
}
