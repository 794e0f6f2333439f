package payroll

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	statuses := []RunStatus{
		RunStatusDraft,
		RunStatusCalculating,
		RunStatusCalculated,
		RunStatusApproved,
		RunStatusPaid,
		RunStatusFailed,
	}
	allowed := map[RunAction][]RunStatus{
		ActionTrigger:  {RunStatusDraft, RunStatusCalculated, RunStatusCalculating, RunStatusFailed},
		ActionComplete: {RunStatusCalculating},
		ActionFail:     {RunStatusCalculating},
		ActionApprove:  {RunStatusCalculated},
		ActionPay:      {RunStatusApproved},
		ActionRevert:   {RunStatusCalculated, RunStatusFailed},
		ActionDelete:   {RunStatusDraft},
	}

	for action, from := range allowed {
		for _, status := range statuses {
			want := false
			for _, s := range from {
				if s == status {
					want = true
				}
			}

			err := CheckTransition(action, status)

			if want {
				assert.NoError(t, err, "%s from %s", action, status)
				continue
			}
			var transitionErr *StateTransitionError
			if assert.True(t, errors.As(err, &transitionErr), "%s from %s", action, status) {
				assert.Equal(t, action, transitionErr.Action)
				assert.Equal(t, status, transitionErr.From)
			}
			assert.ErrorIs(t, err, ErrInvalidStateTransition)
		}
	}
}

func TestCheckTransition_PaidIsTerminal(t *testing.T) {
	for _, action := range []RunAction{ActionTrigger, ActionApprove, ActionPay, ActionRevert, ActionDelete, ActionComplete, ActionFail} {
		assert.Error(t, CheckTransition(action, RunStatusPaid), string(action))
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		action RunAction
		want   RunStatus
		ok     bool
	}{
		{ActionTrigger, RunStatusCalculating, true},
		{ActionComplete, RunStatusCalculated, true},
		{ActionFail, RunStatusFailed, true},
		{ActionApprove, RunStatusApproved, true},
		{ActionPay, RunStatusPaid, true},
		{ActionRevert, RunStatusDraft, true},
		{ActionDelete, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			got, ok := NextStatus(tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateTransitionError_Message(t *testing.T) {
	err := &StateTransitionError{Action: ActionApprove, From: RunStatusDraft}

	assert.Equal(t, `cannot approve payroll run in status "draft"`, err.Error())
}

func TestPayrollRunProgress_PercentComplete(t *testing.T) {
	tests := []struct {
		name     string
		progress PayrollRunProgress
		want     float64
	}{
		{"empty pending", PayrollRunProgress{Status: ProgressStatusPending}, 0},
		{"empty completed", PayrollRunProgress{Status: ProgressStatusCompleted}, 100},
		{"half", PayrollRunProgress{TotalEmployees: 10, ProcessedCount: 5}, 50},
		{"overshoot is clamped", PayrollRunProgress{TotalEmployees: 4, ProcessedCount: 5}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.progress.PercentComplete())
		})
	}
}
