package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"procureflow/internal/model"
	"procureflow/internal/workflow"

	"github.com/shopspring/decimal"
)

var (
	requesterActor = Actor{Role: model.RoleEmployee, Name: "Morgan Elliot - MFG ENG"}
	reviewerActor  = Actor{Role: model.RoleESS, Name: "Gerald Carter - ESS"}
	adminActor     = Actor{Role: model.RoleAdmin, Name: "Admin User"}
)

func newRequestServiceForTest(t *testing.T) RequestService {
	t.Helper()
	return NewRequestService(newTestDB(t), nil)
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleInput() SaveRequestInput {
	return SaveRequestInput{
		ProjectCode:  "PRJ-ALPHA",
		NeededByDate: time.Now().Add(14 * 24 * time.Hour),
		Priority:     model.PriorityHigh,
		Notes:        "bench rework",
		Items: []LineItemInput{
			{Name: "Torque wrench", Vendor: "McMaster", Quantity: 2, UnitType: "Each", PricePerUnit: price("25.50")},
			{Name: "Fastener kit", Vendor: "Fastenal", Quantity: 1, UnitType: "Kit", PricePerUnit: price("10.00")},
		},
	}
}

func mustSave(t *testing.T, svc RequestService, input SaveRequestInput, actor Actor) *RequestResponse {
	t.Helper()
	resp, err := svc.Save(context.Background(), input, actor)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	return resp
}

func TestSaveNewRequest(t *testing.T) {
	svc := newRequestServiceForTest(t)

	resp := mustSave(t, svc, sampleInput(), requesterActor)

	if resp.ID != "REQ-1001" {
		t.Errorf("id = %q, want REQ-1001", resp.ID)
	}
	if resp.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", resp.Status)
	}
	if resp.RequesterName != requesterActor.Name {
		t.Errorf("requester = %q, want %q", resp.RequesterName, requesterActor.Name)
	}
	if !resp.TotalAmount.Equal(price("61.00")) {
		t.Errorf("total = %s, want 61.00", resp.TotalAmount)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	if resp.Items[0].Name != "Torque wrench" {
		t.Errorf("items out of submission order: first = %q", resp.Items[0].Name)
	}
	if len(resp.Timeline) != 1 {
		t.Fatalf("timeline has %d events, want 1", len(resp.Timeline))
	}
	if evt := resp.Timeline[0]; evt.Action != model.EventSubmitted || evt.ActorName != requesterActor.Name || evt.Role != model.RoleEmployee {
		t.Errorf("seed event = %+v, want Submitted by the requester", evt)
	}
}

func TestSaveAssignsSequentialIDs(t *testing.T) {
	svc := newRequestServiceForTest(t)

	first := mustSave(t, svc, sampleInput(), requesterActor)
	second := mustSave(t, svc, sampleInput(), requesterActor)

	if first.ID != "REQ-1001" || second.ID != "REQ-1002" {
		t.Fatalf("ids = %q, %q, want REQ-1001, REQ-1002", first.ID, second.ID)
	}
}

func TestSaveWithExplicitUnknownIDCreates(t *testing.T) {
	svc := newRequestServiceForTest(t)

	input := sampleInput()
	input.ID = "REQ-2000"
	resp := mustSave(t, svc, input, requesterActor)
	if resp.ID != "REQ-2000" {
		t.Fatalf("id = %q, want REQ-2000", resp.ID)
	}

	// allocation continues past the highest existing code
	next := mustSave(t, svc, sampleInput(), requesterActor)
	if next.ID != "REQ-2001" {
		t.Fatalf("next id = %q, want REQ-2001", next.ID)
	}
}

func TestSaveEditWhilePendingAppendsEdited(t *testing.T) {
	svc := newRequestServiceForTest(t)
	created := mustSave(t, svc, sampleInput(), requesterActor)

	time.Sleep(5 * time.Millisecond)

	edit := sampleInput()
	edit.ID = created.ID
	edit.Notes = "vendor changed"
	edit.Items = []LineItemInput{
		{Name: "Torque wrench", Vendor: "Grainger", Quantity: 1, UnitType: "Each", PricePerUnit: price("27.00")},
	}
	updated := mustSave(t, svc, edit, requesterActor)

	if updated.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", updated.Status)
	}
	if len(updated.Timeline) != 2 {
		t.Fatalf("timeline has %d events, want 2", len(updated.Timeline))
	}
	if last := updated.Timeline[1]; last.Action != model.EventEdited {
		t.Errorf("last event = %q, want Edited", last.Action)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("line items not replaced: %d items", len(updated.Items))
	}
	if !updated.TotalAmount.Equal(price("27.00")) {
		t.Errorf("total not recomputed: %s", updated.TotalAmount)
	}
	if updated.Notes != "vendor changed" {
		t.Errorf("notes = %q", updated.Notes)
	}
}

func TestSaveAfterRejectionResubmits(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()
	created := mustSave(t, svc, sampleInput(), requesterActor)

	time.Sleep(5 * time.Millisecond)
	rejected, err := svc.ProcessApproval(ctx, created.ID, workflow.ActionReject, "budget", reviewerActor)
	if err != nil {
		t.Fatalf("ProcessApproval returned error: %v", err)
	}
	if rejected.Status != model.StatusRejected {
		t.Fatalf("status after rejection = %q", rejected.Status)
	}

	time.Sleep(5 * time.Millisecond)
	edit := sampleInput()
	edit.ID = created.ID
	resubmitted := mustSave(t, svc, edit, requesterActor)

	if resubmitted.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending after resubmission", resubmitted.Status)
	}
	if len(resubmitted.Timeline) != 3 {
		t.Fatalf("timeline has %d events, want 3", len(resubmitted.Timeline))
	}
	if last := resubmitted.Timeline[2]; last.Action != model.EventResubmitted {
		t.Errorf("last event = %q, want Resubmitted", last.Action)
	}
	// rejection history is preserved, note included
	if evt := resubmitted.Timeline[1]; evt.Action != model.EventRejected || evt.Note != "budget" {
		t.Errorf("rejection event = %+v, want Rejected with note %q", evt, "budget")
	}
}

func TestSaveAfterInfoRequestResubmits(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()
	created := mustSave(t, svc, sampleInput(), requesterActor)

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.ProcessApproval(ctx, created.ID, workflow.ActionRequestInfo, "need a second quote", reviewerActor); err != nil {
		t.Fatalf("ProcessApproval returned error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	edit := sampleInput()
	edit.ID = created.ID
	resubmitted := mustSave(t, svc, edit, requesterActor)

	if resubmitted.Status != model.StatusPending {
		t.Errorf("status = %q, want Pending", resubmitted.Status)
	}
	if last := resubmitted.Timeline[len(resubmitted.Timeline)-1]; last.Action != model.EventResubmitted {
		t.Errorf("last event = %q, want Resubmitted", last.Action)
	}
}

func TestSaveEditPermissions(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()
	created := mustSave(t, svc, sampleInput(), requesterActor)

	edit := sampleInput()
	edit.ID = created.ID

	if _, err := svc.Save(ctx, edit, reviewerActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("reviewer edit: error = %v, want ErrForbidden", err)
	}

	if _, err := svc.ProcessApproval(ctx, created.ID, workflow.ActionOrder, "", reviewerActor); err != nil {
		t.Fatalf("ProcessApproval returned error: %v", err)
	}
	if _, err := svc.Save(ctx, edit, requesterActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("edit of an ordered request: error = %v, want ErrForbidden", err)
	}
}

func TestProcessApproval(t *testing.T) {
	tests := []struct {
		name       string
		setup      []workflow.Action // applied before the action under test
		action     workflow.Action
		note       string
		wantStatus string
		wantLabel  string
	}{
		{"order", nil, workflow.ActionOrder, "", model.StatusOrdered, model.EventOrdered},
		{"receive", []workflow.Action{workflow.ActionOrder}, workflow.ActionReceived, "", model.StatusReceived, model.EventReceived},
		{"reject", nil, workflow.ActionReject, "over budget", model.StatusRejected, model.EventRejected},
		{"request info", nil, workflow.ActionRequestInfo, "missing part numbers", model.StatusNeedsInfo, model.EventInfoRequested},
		{"reject after ordering", []workflow.Action{workflow.ActionOrder}, workflow.ActionReject, "vendor backorder", model.StatusRejected, model.EventRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newRequestServiceForTest(t)
			ctx := context.Background()
			created := mustSave(t, svc, sampleInput(), requesterActor)

			for _, a := range tt.setup {
				time.Sleep(5 * time.Millisecond)
				if _, err := svc.ProcessApproval(ctx, created.ID, a, "", reviewerActor); err != nil {
					t.Fatalf("setup ProcessApproval(%s) returned error: %v", a, err)
				}
			}

			time.Sleep(5 * time.Millisecond)
			resp, err := svc.ProcessApproval(ctx, created.ID, tt.action, tt.note, reviewerActor)
			if err != nil {
				t.Fatalf("ProcessApproval returned error: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			last := resp.Timeline[len(resp.Timeline)-1]
			if last.Action != tt.wantLabel {
				t.Errorf("last event = %q, want %q", last.Action, tt.wantLabel)
			}
			if last.Note != tt.note {
				t.Errorf("note = %q, want it stored verbatim as %q", last.Note, tt.note)
			}
			if last.ActorName != reviewerActor.Name || last.Role != model.RoleESS {
				t.Errorf("event actor = %q (%s), want the acting reviewer", last.ActorName, last.Role)
			}
		})
	}
}

func TestProcessApprovalIllegalTransition(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()
	created := mustSave(t, svc, sampleInput(), requesterActor)

	// Received before Ordered
	if _, err := svc.ProcessApproval(ctx, created.ID, workflow.ActionReceived, "", reviewerActor); !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Fatalf("error = %v, want ErrIllegalTransition", err)
	}

	// a failed action leaves the request untouched
	reloaded, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if reloaded.Status != model.StatusPending {
		t.Errorf("status = %q after a rejected action, want Pending", reloaded.Status)
	}
	if len(reloaded.Timeline) != 1 {
		t.Errorf("timeline grew to %d events on a rejected action", len(reloaded.Timeline))
	}
}

func TestProcessApprovalUnknownRequest(t *testing.T) {
	svc := newRequestServiceForTest(t)
	if _, err := svc.ProcessApproval(context.Background(), "REQ-9999", workflow.ActionOrder, "", reviewerActor); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("error = %v, want ErrRequestNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()
	created := mustSave(t, svc, sampleInput(), requesterActor)

	if err := svc.Delete(ctx, created.ID, requesterActor); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("GetByID after delete: error = %v, want ErrRequestNotFound", err)
	}

	// deleting twice looks the same as deleting once
	if err := svc.Delete(ctx, created.ID, requesterActor); err != nil {
		t.Fatalf("repeat Delete returned error: %v", err)
	}
}

func TestDeletePermissions(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()

	otherEmployee := Actor{Role: model.RoleEmployee, Name: "Mike Chen - TEST ENG"}

	created := mustSave(t, svc, sampleInput(), requesterActor)
	if err := svc.Delete(ctx, created.ID, otherEmployee); !errors.Is(err, ErrForbidden) {
		t.Fatalf("delete of someone else's request: error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, created.ID, reviewerActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("reviewer delete: error = %v, want ErrForbidden", err)
	}

	if _, err := svc.ProcessApproval(ctx, created.ID, workflow.ActionOrder, "", reviewerActor); err != nil {
		t.Fatalf("ProcessApproval returned error: %v", err)
	}
	if err := svc.Delete(ctx, created.ID, requesterActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("requester delete of an ordered request: error = %v, want ErrForbidden", err)
	}

	// an admin may always delete
	if err := svc.Delete(ctx, created.ID, adminActor); err != nil {
		t.Fatalf("admin Delete returned error: %v", err)
	}
}

func TestAddMessage(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()
	created := mustSave(t, svc, sampleInput(), requesterActor)

	time.Sleep(5 * time.Millisecond)
	resp, err := svc.AddMessage(ctx, created.ID, AddMessageInput{
		Text: "Quote attached",
		Attachments: []AttachmentInput{
			{DataURI: "data:application/pdf;base64,AAAA", Filename: "quote.pdf", MIMEType: "application/pdf"},
		},
	}, reviewerActor)
	if err != nil {
		t.Fatalf("AddMessage returned error: %v", err)
	}

	if len(resp.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(resp.Messages))
	}
	msg := resp.Messages[0]
	if msg.Sender != model.RoleESS || msg.SenderName != reviewerActor.Name {
		t.Errorf("message sender = %q (%s)", msg.SenderName, msg.Sender)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Attachments))
	}
	if att := msg.Attachments[0]; att.Filename != "quote.pdf" || att.MIMEType != "application/pdf" || att.IsImage {
		t.Errorf("attachment decoded as %+v", att)
	}

	// messages never move the workflow or touch the timeline
	if resp.Status != model.StatusPending {
		t.Errorf("status = %q after a message, want Pending", resp.Status)
	}
	if len(resp.Timeline) != 1 {
		t.Errorf("timeline grew to %d events on a message", len(resp.Timeline))
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, resp.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, resp.UpdatedAt)
	if !updatedAt.After(createdAt) {
		t.Errorf("updated_at %s not stamped past created_at %s", resp.UpdatedAt, resp.CreatedAt)
	}
}

func TestAddMessageUnknownRequest(t *testing.T) {
	svc := newRequestServiceForTest(t)
	if _, err := svc.AddMessage(context.Background(), "REQ-9999", AddMessageInput{Text: "hello"}, requesterActor); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("error = %v, want ErrRequestNotFound", err)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc := newRequestServiceForTest(t)
	ctx := context.Background()

	first := mustSave(t, svc, sampleInput(), requesterActor)
	mustSave(t, svc, sampleInput(), requesterActor)
	if _, err := svc.ProcessApproval(ctx, first.ID, workflow.ActionOrder, "", reviewerActor); err != nil {
		t.Fatalf("ProcessApproval returned error: %v", err)
	}

	pending, total, err := svc.List(ctx, RequestFilter{Status: model.StatusPending})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Fatalf("pending list = %d rows (total %d), want 1", len(pending), total)
	}
	if pending[0].Status != model.StatusPending {
		t.Errorf("filtered row has status %q", pending[0].Status)
	}

	all, total, err := svc.List(ctx, RequestFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("unfiltered list = %d rows (total %d), want 2", len(all), total)
	}
}
