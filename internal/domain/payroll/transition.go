package payroll

// RunAction is an operation that moves a run between statuses.
type RunAction string

const (
	ActionTrigger  RunAction = "trigger"
	ActionComplete RunAction = "complete"
	ActionFail     RunAction = "fail"
	ActionApprove  RunAction = "approve"
	ActionPay      RunAction = "pay"
	ActionRevert   RunAction = "revert"
	ActionDelete   RunAction = "delete"
)

var allowedFrom = map[RunAction][]RunStatus{
	// calculating and failed allow resumption of an interrupted batch; the
	// service still rejects a trigger while progress is in flight.
	ActionTrigger:  {RunStatusDraft, RunStatusCalculated, RunStatusCalculating, RunStatusFailed},
	ActionComplete: {RunStatusCalculating},
	ActionFail:     {RunStatusCalculating},
	ActionApprove:  {RunStatusCalculated},
	ActionPay:      {RunStatusApproved},
	ActionRevert:   {RunStatusCalculated, RunStatusFailed},
	ActionDelete:   {RunStatusDraft},
}

var resultingStatus = map[RunAction]RunStatus{
	ActionTrigger:  RunStatusCalculating,
	ActionComplete: RunStatusCalculated,
	ActionFail:     RunStatusFailed,
	ActionApprove:  RunStatusApproved,
	ActionPay:      RunStatusPaid,
	ActionRevert:   RunStatusDraft,
}

// CheckTransition returns a *StateTransitionError when action is not
// allowed from status.
func CheckTransition(action RunAction, from RunStatus) error {
	for _, s := range allowedFrom[action] {
		if s == from {
			return nil
		}
	}
	return &StateTransitionError{Action: action, From: from}
}

// NextStatus returns the status a run ends in after action. Delete has none.
func NextStatus(action RunAction) (RunStatus, bool) {
	s, ok := resultingStatus[action]
	return s, ok
}
