package workflow

import (
	"errors"
	"testing"
)

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		action     Action
		wantStatus string
		wantLabel  string
	}{
		{"order pending", "Pending", ActionOrder, "Ordered", "Ordered"},
		{"order after info", "Needs Info", ActionOrder, "Ordered", "Ordered"},
		{"receive ordered", "Ordered", ActionReceived, "Received", "Received"},
		{"reject pending", "Pending", ActionReject, "Rejected", "Rejected"},
		{"reject after info", "Needs Info", ActionReject, "Rejected", "Rejected"},
		{"reject ordered", "Ordered", ActionReject, "Rejected", "Rejected"},
		{"request info pending", "Pending", ActionRequestInfo, "Needs Info", "Info Requested"},
		{"request info ordered", "Ordered", ActionRequestInfo, "Needs Info", "Info Requested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Apply(tt.from, tt.action)
			if err != nil {
				t.Fatalf("Apply(%q, %q) returned error: %v", tt.from, tt.action, err)
			}
			if tr.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", tr.Status, tt.wantStatus)
			}
			if tr.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", tr.Label, tt.wantLabel)
			}
		})
	}
}

func TestApplyIllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		action Action
	}{
		{"order a received request", "Received", ActionOrder},
		{"order a rejected request", "Rejected", ActionOrder},
		{"receive before ordering", "Pending", ActionReceived},
		{"receive a rejected request", "Rejected", ActionReceived},
		{"reject a received request", "Received", ActionReject},
		{"request info after rejection", "Rejected", ActionRequestInfo},
		{"request info twice", "Needs Info", ActionRequestInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Apply(tt.from, tt.action); !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("Apply(%q, %q) error = %v, want ErrIllegalTransition", tt.from, tt.action, err)
			}
		})
	}
}

func TestApplyUnknownAction(t *testing.T) {
	if _, err := Apply("Pending", Action("escalate")); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("error = %v, want ErrUnknownAction", err)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{ActionOrder, ActionReceived, ActionReject, ActionRequestInfo} {
		got, err := ParseAction(string(a))
		if err != nil {
			t.Fatalf("ParseAction(%q) returned error: %v", a, err)
		}
		if got != a {
			t.Errorf("ParseAction(%q) = %q", a, got)
		}
	}
	if _, err := ParseAction("approve"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("error = %v, want ErrUnknownAction", err)
	}
}
