package lifecycle

import "civicx-be/models"

type Action string

const (
	ActionReport     Action = "report"
	ActionVote       Action = "vote"
	ActionTransition Action = "transition"
	ActionModerate   Action = "moderate"
)

// Can is the single capability check consumed by both the service layer
// and the HTTP middleware.
func Can(role models.UserRole, action Action) bool {
	switch role {
	case models.RoleOfficial:
		return action == ActionReport || action == ActionTransition || action == ActionModerate
	case models.RoleCitizen:
		return action == ActionReport || action == ActionVote
	default:
		return false
	}
}

// NormalizeRole maps unknown role strings to citizen.
func NormalizeRole(role string) models.UserRole {
	switch models.UserRole(role) {
	case models.RoleCitizen, models.RoleOfficial:
		return models.UserRole(role)
	default:
		return models.RoleCitizen
	}
}
