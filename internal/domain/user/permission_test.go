package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		permission Permission
		want       bool
	}{
		{"owner can pay", RoleOwner, PermissionPayrollPay, true},
		{"manager can approve", RoleManager, PermissionPayrollApprove, true},
		{"manager cannot pay", RoleManager, PermissionPayrollPay, false},
		{"employee cannot view runs", RoleEmployee, PermissionPayrollView, false},
		{"pending has nothing", RolePending, PermissionRulesView, false},
		{"unknown role", Role("auditor"), PermissionRulesView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.permission))
		})
	}
}
