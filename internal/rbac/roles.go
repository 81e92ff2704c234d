package rbac

// Role names. Keep these stable; they are carried in access tokens.
const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleDirector   = "director"
	RoleAdmin      = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// CanCoach reports whether a role may send coaching messages.
func CanCoach(role string) bool {
	switch role {
	case RoleSupervisor, RoleDirector, RoleAdmin:
		return true
	}
	return false
}
