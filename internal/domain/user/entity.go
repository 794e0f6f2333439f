package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can approve payroll runs
	RoleEmployee Role = "employee" // Country rule lookups only
	RolePending  Role = "pending"  // Still in onboarding
)

// Claims is the tenant identity carried by an access token.
type Claims struct {
	UserID    string
	CompanyID string
	Role      Role
}
