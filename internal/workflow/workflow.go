// Package workflow holds the pure approval state machine: it maps a reviewer
// action applied to a request's current status onto the new status and the
// timeline label to record, with no storage or transport concerns.
package workflow

import (
	"errors"
	"fmt"

	"procureflow/internal/model"
)

// Action is a reviewer operation on a purchase request
type Action string

const (
	ActionOrder       Action = "Order"
	ActionReceived    Action = "Received"
	ActionReject      Action = "Reject"
	ActionRequestInfo Action = "RequestInfo"
)

var (
	ErrUnknownAction     = errors.New("unknown approval action")
	ErrIllegalTransition = errors.New("action not allowed from current status")
)

// Transition is the outcome of applying an action: the request's new status
// and the label of the timeline event to append.
type Transition struct {
	Status string
	Label  string
}

var transitions = map[Action]Transition{
	ActionOrder:       {Status: model.StatusOrdered, Label: model.EventOrdered},
	ActionReceived:    {Status: model.StatusReceived, Label: model.EventReceived},
	ActionReject:      {Status: model.StatusRejected, Label: model.EventRejected},
	ActionRequestInfo: {Status: model.StatusNeedsInfo, Label: model.EventInfoRequested},
}

// allowedFrom guards each action to the statuses it may be applied from.
// Received is terminal; Draft and Cancelled have no transitions at all.
var allowedFrom = map[Action]map[string]bool{
	ActionOrder: {
		model.StatusPending:   true,
		model.StatusNeedsInfo: true,
	},
	ActionReceived: {
		model.StatusOrdered: true,
	},
	ActionReject: {
		model.StatusPending:   true,
		model.StatusNeedsInfo: true,
		model.StatusOrdered:   true,
	},
	ActionRequestInfo: {
		model.StatusPending: true,
		model.StatusOrdered: true,
	},
}

// Apply computes the transition for action from the current status.
func Apply(current string, action Action) (Transition, error) {
	t, ok := transitions[action]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !allowedFrom[action][current] {
		return Transition{}, fmt.Errorf("%w: cannot %s a request in status %q", ErrIllegalTransition, action, current)
	}
	return t, nil
}

// ParseAction validates a wire-level action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionOrder, ActionReceived, ActionReject, ActionRequestInfo:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}
