package handler

import (
	"strings"
	"time"

	"github.com/fieldline/crm-backoffice/internal/core/domain"
)

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// normalize trims the fields the validator inspects so register accepts the
// same e-mail forms login does.
func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = domain.NormalizeEmail(r.Email)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin agent"`
}

type loginResponse struct {
	Token       string              `json:"token"`
	ExpiresAt   time.Time           `json:"expires_at"`
	User        *domain.Identity    `json:"user"`
	Permissions domain.Capabilities `json:"permissions"`
}

type profileResponse struct {
	User        *domain.Identity    `json:"user"`
	Permissions domain.Capabilities `json:"permissions"`
}

type userResponse struct {
	User *domain.Identity `json:"user"`
}

type usersResponse struct {
	Users []*domain.Identity `json:"users"`
	Count int                `json:"count"`
}

type revokedResponse struct {
	Revoked int `json:"revoked"`
}

type messageResponse struct {
	Message string `json:"message"`
}
