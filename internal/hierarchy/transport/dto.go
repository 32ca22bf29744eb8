package transport

import (
	"time"

	"salesops_backend/internal/hierarchy/domain"
	"salesops_backend/internal/hierarchy/repository"

	"github.com/google/uuid"
)

// UserResponse is the wire representation of a user in the hierarchy.
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// RoleTabsResponse lists the roles the caller may target, in display order.
type RoleTabsResponse struct {
	Tabs []domain.Role `json:"tabs"`
}

// ToUserResponse maps a stored user to its wire form.
func ToUserResponse(user repository.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserResponses maps a slice of stored users.
func ToUserResponses(users []repository.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, ToUserResponse(user))
	}
	return out
}
