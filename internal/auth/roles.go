package auth

// Role represents an authorisation tier for API callers.
type Role string

const (
	// RoleViewer can read node status, health and the event journal.
	RoleViewer Role = "viewer"

	// RoleOperator can do everything a viewer can, plus press and release
	// buttons and change the inbound subscription.
	RoleOperator Role = "operator"
)

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermStatusRead    Permission = "status:read"
	PermEventsRead    Permission = "events:read"
	PermButtonOperate Permission = "button:operate"
	PermSubscription  Permission = "subscription:manage"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermStatusRead,
		PermEventsRead,
	},
	RoleOperator: {
		PermStatusRead,
		PermEventsRead,
		PermButtonOperate,
		PermSubscription,
	},
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(r Role, p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}
