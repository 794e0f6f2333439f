package user

type Permission string

const (
	// Payroll runs
	PermissionPayrollView    Permission = "payroll.view"
	PermissionPayrollManage  Permission = "payroll.manage"
	PermissionPayrollApprove Permission = "payroll.approve"
	PermissionPayrollPay     Permission = "payroll.pay"

	// Calculation
	PermissionPayrollPreview Permission = "payroll.preview"

	// Component catalog and country rules
	PermissionComponentsManage Permission = "components.manage"
	PermissionRulesView        Permission = "rules.view"

	// Regulatory reports
	PermissionReportsView Permission = "reports.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollApprove,
		PermissionPayrollPay,
		PermissionPayrollPreview,
		PermissionComponentsManage,
		PermissionRulesView,
		PermissionReportsView,
	},
	RoleManager: {
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollApprove,
		PermissionPayrollPreview,
		PermissionRulesView,
		PermissionReportsView,
	},
	RoleEmployee: {
		PermissionRulesView,
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
