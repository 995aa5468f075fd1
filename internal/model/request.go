package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestStatus enum constants
const (
	StatusPending   = "Pending"
	StatusNeedsInfo = "Needs Info"
	StatusOrdered   = "Ordered"
	StatusReceived  = "Received"
	StatusRejected  = "Rejected"

	// Declared statuses with no reachable transition. Kept so stored data
	// carrying them still round-trips.
	StatusDraft     = "Draft"
	StatusCancelled = "Cancelled"
)

// Priority enum constants
const (
	PriorityLow      = "Low"
	PriorityNormal   = "Normal"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// ApprovalEvent action labels. The timeline is append-only: events are never
// mutated or removed once written.
const (
	EventSubmitted     = "Submitted"
	EventResubmitted   = "Resubmitted"
	EventOrdered       = "Ordered"
	EventReceived      = "Received"
	EventRejected      = "Rejected"
	EventInfoRequested = "Info Requested"
	EventEdited        = "Edited"
)

// PurchaseRequest is the central aggregate: one employee request with its
// line items, chat messages and approval timeline.
type PurchaseRequest struct {
	ID            string          `gorm:"type:varchar(20);primaryKey" json:"id"` // REQ-NNNN
	ProjectCode   string          `gorm:"type:varchar(100);not null;index" json:"project_code"`
	RequesterName string          `gorm:"type:varchar(255);not null" json:"requester_name"`
	NeededByDate  time.Time       `json:"needed_by_date"`
	Priority      string          `gorm:"type:varchar(10);not null;default:'Normal'" json:"priority"`
	Status        string          `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_amount"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Items         []LineItem      `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`
	Messages      []Message       `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"messages"`
	Timeline      []ApprovalEvent `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"approval_timeline"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ComputeTotal returns the sum of quantity x unit price over all line items.
// Callers must recompute and store this before persisting an edit.
func (r *PurchaseRequest) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.PricePerUnit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// LineItem is one purchased good/service entry, owned by its parent request
type LineItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID     string          `gorm:"type:varchar(20);not null;index" json:"request_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Vendor        string          `gorm:"type:varchar(255)" json:"vendor"`
	MfgPartNumber string          `gorm:"type:varchar(100)" json:"mfg_part_number"`
	URL           string          `gorm:"type:text" json:"url"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitType      string          `gorm:"type:varchar(50)" json:"unit_type"` // "Each", "Box of 10", ...
	PricePerUnit  decimal.Decimal `gorm:"type:numeric(12,2)" json:"price_per_unit"`
	Position      int             `gorm:"not null;default:0" json:"-"` // preserves form ordering
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"-"`
}

func (i *LineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Message is a chat-style entry on a request. Appending one touches the
// request's updated_at but never its status or timeline.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   string    `gorm:"type:varchar(20);not null;index" json:"request_id"`
	Sender      string    `gorm:"type:varchar(20);not null" json:"sender"` // role of the sender
	SenderName  string    `gorm:"type:varchar(255);not null" json:"sender_name"`
	Text        string    `gorm:"type:text" json:"text"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	Attachments []string  `gorm:"serializer:json;type:text" json:"attachments"` // "dataURI|filename|mimetype" strings
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ApprovalEvent is one immutable audit entry on a request's approval timeline
type ApprovalEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID string    `gorm:"type:varchar(20);not null;index" json:"request_id"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"` // role of the actor
	ActorName string    `gorm:"type:varchar(255);not null" json:"actor_name"`
	Action    string    `gorm:"type:varchar(20);not null" json:"action"` // Submitted, Ordered, ...
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (e *ApprovalEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
