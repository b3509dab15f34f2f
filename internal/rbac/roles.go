package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin             = "admin"
	RoleComplianceOfficer = "compliance_officer"
	RoleEditor            = "editor"
	RoleViewer            = "viewer"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
