package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"procureflow/internal/attachment"
	"procureflow/internal/model"
	"procureflow/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor identifies the authenticated user performing a store operation. The
// store trusts the caller-supplied role; route middleware is what gates access.
type Actor struct {
	UserID *uuid.UUID
	Role   string
	Name   string // display name, e.g. "Morgan Elliot - MFG ENG"
}

// Notifier pushes request-lifecycle events to connected dashboard clients
type Notifier interface {
	Publish(event string, payload interface{})
}

// --- DTOs ---

type LineItemInput struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Vendor        string          `json:"vendor"`
	MfgPartNumber string          `json:"mfg_part_number"`
	URL           string          `json:"url"`
	Quantity      int             `json:"quantity"`
	UnitType      string          `json:"unit_type"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

type SaveRequestInput struct {
	ID            string          `json:"id"` // empty on create; server assigns REQ-NNNN
	ProjectCode   string          `json:"project_code" binding:"required"`
	RequesterName string          `json:"requester_name"`
	NeededByDate  time.Time       `json:"needed_by_date"`
	Priority      string          `json:"priority" binding:"omitempty,oneof=Low Normal High Critical"`
	Notes         string          `json:"notes"`
	Items         []LineItemInput `json:"items" binding:"required,min=1,dive"`
}

type AttachmentInput struct {
	DataURI  string `json:"data_uri" binding:"required"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
}

type AddMessageInput struct {
	Text        string            `json:"text"`
	Attachments []AttachmentInput `json:"attachments" binding:"dive"`
}

type RequestFilter struct {
	Status      string
	ProjectCode string
	Requester   string
	Page        int
	Limit       int
}

type LineItemResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Vendor        string          `json:"vendor"`
	MfgPartNumber string          `json:"mfg_part_number"`
	URL           string          `json:"url"`
	Quantity      int             `json:"quantity"`
	UnitType      string          `json:"unit_type"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

type AttachmentResponse struct {
	DataURI  string `json:"data_uri"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	IsImage  bool   `json:"is_image"`
}

type MessageResponse struct {
	ID          string               `json:"id"`
	Sender      string               `json:"sender"`
	SenderName  string               `json:"sender_name"`
	Text        string               `json:"text"`
	Timestamp   string               `json:"timestamp"`
	Attachments []AttachmentResponse `json:"attachments"`
}

type ApprovalEventResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	ActorName string `json:"actor_name"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

type RequestResponse struct {
	ID            string                  `json:"id"`
	ProjectCode   string                  `json:"project_code"`
	RequesterName string                  `json:"requester_name"`
	NeededByDate  string                  `json:"needed_by_date"`
	Priority      string                  `json:"priority"`
	Status        string                  `json:"status"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	Notes         string                  `json:"notes"`
	Items         []LineItemResponse      `json:"items"`
	Messages      []MessageResponse       `json:"messages"`
	Timeline      []ApprovalEventResponse `json:"approval_timeline"`
	CreatedAt     string                  `json:"created_at"`
	UpdatedAt     string                  `json:"updated_at"`
}

// --- Interface ---

type RequestService interface {
	List(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error)
	GetByID(ctx context.Context, id string) (*RequestResponse, error)
	Save(ctx context.Context, input SaveRequestInput, actor Actor) (*RequestResponse, error)
	Delete(ctx context.Context, id string, actor Actor) error
	ProcessApproval(ctx context.Context, id string, action workflow.Action, note string, actor Actor) (*RequestResponse, error)
	AddMessage(ctx context.Context, id string, input AddMessageInput, actor Actor) (*RequestResponse, error)
}

type requestService struct {
	db       *gorm.DB
	notifier Notifier // optional
}

func NewRequestService(db *gorm.DB, notifier Notifier) RequestService {
	return &requestService{db: db, notifier: notifier}
}

// --- Implementation ---

func (s *requestService) List(ctx context.Context, filter RequestFilter) ([]RequestResponse, int64, error) {
	var total int64
	countQuery := s.db.WithContext(ctx).Model(&model.PurchaseRequest{})
	countQuery = applyRequestFilter(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var requests []model.PurchaseRequest
	fetchQuery := withRequestPreloads(s.db.WithContext(ctx))
	fetchQuery = applyRequestFilter(fetchQuery, filter)
	if err := fetchQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, toRequestResponse(&requests[i]))
	}
	return result, total, nil
}

func (s *requestService) GetByID(ctx context.Context, id string) (*RequestResponse, error) {
	req, err := s.loadRequest(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	resp := toRequestResponse(req)
	return &resp, nil
}

// Save upserts a purchase request.
//
// A brand-new request is forced to Pending and its timeline is seeded with a
// single Submitted event. An existing request gets updated_at stamped and one
// Edited (still Pending) or Resubmitted (any other editable status) event
// appended; Rejected and Needs Info requests re-enter the review queue as
// Pending. The total is recomputed from the submitted line items either way.
func (s *requestService) Save(ctx context.Context, input SaveRequestInput, actor Actor) (*RequestResponse, error) {
	var saved *model.PurchaseRequest
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PurchaseRequest
		found := false
		if input.ID != "" {
			if err := tx.First(&existing, "id = ?", input.ID).Error; err == nil {
				found = true
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		items := buildLineItems(input.Items)
		total := sumLineItems(items)
		now := time.Now()

		if !found {
			created = true
			id := input.ID
			if id == "" {
				nextID, err := nextRequestID(tx)
				if err != nil {
					return err
				}
				id = nextID
			}

			requester := input.RequesterName
			if requester == "" {
				requester = actor.Name
			}
			priority := input.Priority
			if priority == "" {
				priority = model.PriorityNormal
			}

			for i := range items {
				items[i].RequestID = id
			}

			req := model.PurchaseRequest{
				ID:            id,
				ProjectCode:   input.ProjectCode,
				RequesterName: requester,
				NeededByDate:  input.NeededByDate,
				Priority:      priority,
				Status:        model.StatusPending, // new requests always enter the queue as Pending
				TotalAmount:   total,
				Notes:         input.Notes,
				Items:         items,
				Timeline: []model.ApprovalEvent{
					{
						Role:      model.RoleEmployee,
						ActorName: requester,
						Action:    model.EventSubmitted,
						Timestamp: now,
					},
				},
			}
			if err := tx.Create(&req).Error; err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}

			if err := writeAudit(tx, actor.UserID, model.ActionCreateRequest, req.ID, req.ProjectCode, map[string]interface{}{
				"total": total.StringFixed(2),
				"items": len(items),
			}); err != nil {
				return err
			}

			saved = &req
			return nil
		}

		// Edits belong to the requester, and only while the request is in an
		// editable status.
		if actor.Role != model.RoleEmployee {
			return ErrForbidden
		}
		switch existing.Status {
		case model.StatusPending, model.StatusNeedsInfo, model.StatusRejected:
		default:
			return ErrForbidden
		}

		label := model.EventEdited
		if existing.Status != model.StatusPending {
			label = model.EventResubmitted
		}
		newStatus := existing.Status
		if newStatus == model.StatusRejected || newStatus == model.StatusNeedsInfo {
			newStatus = model.StatusPending
		}

		if err := tx.Where("request_id = ?", existing.ID).Delete(&model.LineItem{}).Error; err != nil {
			return fmt.Errorf("failed to replace line items: %w", err)
		}
		for i := range items {
			items[i].RequestID = existing.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to replace line items: %w", err)
			}
		}

		actorName := actor.Name
		if actorName == "" {
			actorName = existing.RequesterName
		}
		event := model.ApprovalEvent{
			RequestID: existing.ID,
			Role:      model.RoleEmployee,
			ActorName: actorName,
			Action:    label,
			Timestamp: now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append timeline event: %w", err)
		}

		updates := map[string]interface{}{
			"project_code":   input.ProjectCode,
			"needed_by_date": input.NeededByDate,
			"notes":          input.Notes,
			"status":         newStatus,
			"total_amount":   total,
			"updated_at":     now,
		}
		if input.Priority != "" {
			updates["priority"] = input.Priority
		}
		if input.RequesterName != "" {
			updates["requester_name"] = input.RequesterName
		}
		if err := tx.Model(&model.PurchaseRequest{ID: existing.ID}).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		if err := writeAudit(tx, actor.UserID, model.ActionUpdateRequest, existing.ID, existing.ProjectCode, map[string]interface{}{
			"event": label,
			"total": total.StringFixed(2),
		}); err != nil {
			return err
		}

		reloaded, err := s.loadRequest(tx, existing.ID)
		if err != nil {
			return err
		}
		saved = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		// Created inside the tx without preload ordering; reload for the response
		reloaded, err := s.loadRequest(s.db.WithContext(ctx), saved.ID)
		if err != nil {
			return nil, err
		}
		saved = reloaded
		s.publish("request.created", saved)
	} else {
		s.publish("request.updated", saved)
	}

	resp := toRequestResponse(saved)
	return &resp, nil
}

// Delete removes a request. Unknown ids are a no-op, so deleting twice looks
// the same as deleting once. Allowed to an Admin unconditionally, or to the
// requester while the request is still Pending.
func (s *requestService) Delete(ctx context.Context, id string, actor Actor) error {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.PurchaseRequest
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if actor.Role != model.RoleAdmin {
			if actor.Role != model.RoleEmployee ||
				req.Status != model.StatusPending ||
				req.RequesterName != actor.Name {
				return ErrForbidden
			}
		}

		for _, child := range []interface{}{&model.LineItem{}, &model.Message{}, &model.ApprovalEvent{}} {
			if err := tx.Where("request_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&req).Error; err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}

		if err := writeAudit(tx, actor.UserID, model.ActionDeleteRequest, id, req.ProjectCode, nil); err != nil {
			return err
		}

		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	if deleted {
		s.publish("request.deleted", map[string]string{"id": id})
	}
	return nil
}

// ProcessApproval applies one reviewer action, recording the acting user on
// the timeline event. The note is stored verbatim.
func (s *requestService) ProcessApproval(ctx context.Context, id string, action workflow.Action, note string, actor Actor) (*RequestResponse, error) {
	var processed *model.PurchaseRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.PurchaseRequest
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		transition, err := workflow.Apply(req.Status, action)
		if err != nil {
			return err
		}

		now := time.Now()
		event := model.ApprovalEvent{
			RequestID: req.ID,
			Role:      actor.Role,
			ActorName: actor.Name,
			Action:    transition.Label,
			Timestamp: now,
			Note:      note,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append timeline event: %w", err)
		}

		if err := tx.Model(&model.PurchaseRequest{ID: req.ID}).Updates(map[string]interface{}{
			"status":     transition.Status,
			"updated_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}

		if err := writeAudit(tx, actor.UserID, model.ActionProcessApproval, req.ID, req.ProjectCode, map[string]interface{}{
			"action": string(action),
			"status": transition.Status,
			"note":   note,
		}); err != nil {
			return err
		}

		reloaded, err := s.loadRequest(tx, req.ID)
		if err != nil {
			return err
		}
		processed = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("request.status_changed", processed)
	resp := toRequestResponse(processed)
	return &resp, nil
}

// AddMessage appends a chat message. It stamps updated_at but never touches
// status or the approval timeline.
func (s *requestService) AddMessage(ctx context.Context, id string, input AddMessageInput, actor Actor) (*RequestResponse, error) {
	var updated *model.PurchaseRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.PurchaseRequest
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}

		encoded := make([]string, 0, len(input.Attachments))
		for _, a := range input.Attachments {
			encoded = append(encoded, attachment.Encode(a.DataURI, a.Filename, a.MIMEType))
		}

		now := time.Now()
		msg := model.Message{
			RequestID:   req.ID,
			Sender:      actor.Role,
			SenderName:  actor.Name,
			Text:        input.Text,
			Timestamp:   now,
			Attachments: encoded,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}

		if err := tx.Model(&model.PurchaseRequest{ID: req.ID}).Update("updated_at", now).Error; err != nil {
			return fmt.Errorf("failed to stamp request: %w", err)
		}

		if err := writeAudit(tx, actor.UserID, model.ActionAddMessage, req.ID, req.ProjectCode, map[string]interface{}{
			"attachments": len(encoded),
		}); err != nil {
			return err
		}

		reloaded, err := s.loadRequest(tx, req.ID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("request.message", updated)
	resp := toRequestResponse(updated)
	return &resp, nil
}

// --- Helpers ---

func (s *requestService) publish(event string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if req, ok := payload.(*model.PurchaseRequest); ok {
		payload = map[string]interface{}{
			"id":     req.ID,
			"status": req.Status,
		}
	}
	s.notifier.Publish(event, payload)
}

func (s *requestService) loadRequest(tx *gorm.DB, id string) (*model.PurchaseRequest, error) {
	var req model.PurchaseRequest
	if err := withRequestPreloads(tx).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func withRequestPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC") }).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC") })
}

func applyRequestFilter(db *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.ProjectCode != "" {
		db = db.Where("project_code = ?", filter.ProjectCode)
	}
	if filter.Requester != "" {
		db = db.Where("requester_name = ?", filter.Requester)
	}
	return db
}

func buildLineItems(inputs []LineItemInput) []model.LineItem {
	items := make([]model.LineItem, 0, len(inputs))
	for i, in := range inputs {
		items = append(items, model.LineItem{
			Name:          in.Name,
			Description:   in.Description,
			Vendor:        in.Vendor,
			MfgPartNumber: in.MfgPartNumber,
			URL:           in.URL,
			Quantity:      in.Quantity,
			UnitType:      in.UnitType,
			PricePerUnit:  in.PricePerUnit,
			Position:      i,
		})
	}
	return items
}

func sumLineItems(items []model.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.PricePerUnit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// nextRequestID allocates the next REQ-NNNN code. The advisory lock prevents
// two concurrent creates from reading the same max; it is a no-op outside
// Postgres.
func nextRequestID(tx *gorm.DB) (string, error) {
	tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "purchase_request_id")

	var ids []string
	if err := tx.Model(&model.PurchaseRequest{}).
		Where("id LIKE ?", "REQ-%").
		Order("id DESC").
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return "", err
	}

	next := 1001
	if len(ids) > 0 {
		if n, err := strconv.Atoi(strings.TrimPrefix(ids[0], "REQ-")); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("REQ-%d", next), nil
}

func toRequestResponse(req *model.PurchaseRequest) RequestResponse {
	items := make([]LineItemResponse, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, LineItemResponse{
			ID:            item.ID.String(),
			Name:          item.Name,
			Description:   item.Description,
			Vendor:        item.Vendor,
			MfgPartNumber: item.MfgPartNumber,
			URL:           item.URL,
			Quantity:      item.Quantity,
			UnitType:      item.UnitType,
			PricePerUnit:  item.PricePerUnit,
		})
	}

	messages := make([]MessageResponse, 0, len(req.Messages))
	for _, msg := range req.Messages {
		attachments := make([]AttachmentResponse, 0, len(msg.Attachments))
		for _, raw := range msg.Attachments {
			parsed := attachment.Parse(raw)
			attachments = append(attachments, AttachmentResponse{
				DataURI:  parsed.DataURI,
				Filename: parsed.Filename,
				MIMEType: parsed.MIMEType,
				IsImage:  parsed.IsImage(),
			})
		}
		messages = append(messages, MessageResponse{
			ID:          msg.ID.String(),
			Sender:      msg.Sender,
			SenderName:  msg.SenderName,
			Text:        msg.Text,
			Timestamp:   msg.Timestamp.Format(time.RFC3339Nano),
			Attachments: attachments,
		})
	}

	timeline := make([]ApprovalEventResponse, 0, len(req.Timeline))
	for _, evt := range req.Timeline {
		timeline = append(timeline, ApprovalEventResponse{
			ID:        evt.ID.String(),
			Role:      evt.Role,
			ActorName: evt.ActorName,
			Action:    evt.Action,
			Timestamp: evt.Timestamp.Format(time.RFC3339Nano),
			Note:      evt.Note,
		})
	}

	return RequestResponse{
		ID:            req.ID,
		ProjectCode:   req.ProjectCode,
		RequesterName: req.RequesterName,
		NeededByDate:  req.NeededByDate.Format(time.RFC3339Nano),
		Priority:      req.Priority,
		Status:        req.Status,
		TotalAmount:   req.TotalAmount,
		Notes:         req.Notes,
		Items:         items,
		Messages:      messages,
		Timeline:      timeline,
		CreatedAt:     req.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:     req.UpdatedAt.Format(time.RFC3339Nano),
	}
}
