package authflow

// CheckPermissions allows requestUser to act on the resource owned by
// resourceUserID when it is that user or an admin. Anything else fails
// with ErrForbidden.
func CheckPermissions(requestUser TokenUser, resourceUserID string) error {
	if requestUser.Role == RoleAdmin {
		return nil
	}
	if requestUser.UserID != "" && requestUser.UserID == resourceUserID {
		return nil
	}
	return ErrForbidden
}

// HasRole reports whether u holds one of roles.
func HasRole(u TokenUser, roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
