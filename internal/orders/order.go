// Package orders holds the durable order model and its stores.
package orders

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound reports that no order matches the customer and request id.
	ErrNotFound = errors.New("orders: order not found")
	// ErrPersist wraps failures to write the durable copy. Callers log it and
	// carry on; the in-memory state stays authoritative.
	ErrPersist = errors.New("orders: persist failed")
)

// Status is the lifecycle stage of an order.
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "InProgress"
)

// ParseStatus maps stored spellings, including the legacy Russian labels, to a Status.
func ParseStatus(s string) (Status, bool) {
	switch strings.TrimSpace(s) {
	case string(StatusNew), "Новая":
		return StatusNew, true
	case string(StatusInProgress), "В работе":
		return StatusInProgress, true
	}
	return "", false
}

// Label is the customer-facing rendering of the status.
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "In progress"
	case StatusNew:
		return "New"
	}
	return string(s)
}

// AttachmentKind tags what the photo/VIN step captured.
type AttachmentKind string

const (
	AttachmentText        AttachmentKind = "text"
	AttachmentMedia       AttachmentKind = "media"
	AttachmentUnspecified AttachmentKind = "unspecified"
)

// NotSpecified is the value stored when the customer skipped the photo/VIN step.
const NotSpecified = "not specified"

// Attachment is the photo/VIN answer. Kind is decided once, where the input
// arrives, and never re-derived from Value.
type Attachment struct {
	Kind AttachmentKind
	// Value is the VIN text, the media file reference, or NotSpecified.
	Value   string
	Caption string
}

// TextAttachment wraps a free-text answer such as a VIN.
func TextAttachment(text string) Attachment {
	return Attachment{Kind: AttachmentText, Value: text}
}

// MediaAttachment wraps a transport media reference and its caption.
func MediaAttachment(ref, caption string) Attachment {
	return Attachment{Kind: AttachmentMedia, Value: ref, Caption: caption}
}

// Unspecified is the attachment recorded for a skipped step.
func Unspecified() Attachment {
	return Attachment{Kind: AttachmentUnspecified, Value: NotSpecified}
}

// IsMedia reports whether the attachment is a media reference.
func (a Attachment) IsMedia() bool { return a.Kind == AttachmentMedia }

// Order is a finalized parts request.
type Order struct {
	RequestID  string
	CustomerID int64
	Car        string
	Parts      string
	PhotoOrVIN Attachment
	Contact    string
	City       string
	Status     Status
	CreatedAt  time.Time
	// ClaimedBy and ClaimedAt are zero until an administrator claims the order.
	ClaimedBy int64
	ClaimedAt time.Time
}

// StatusUpdate is applied by a successful claim.
type StatusUpdate struct {
	Status Status
	By     int64
	At     time.Time
}

// Snapshot is every customer's orders in append order.
type Snapshot map[int64][]Order

// Count returns the total number of orders.
func (s Snapshot) Count() int {
	n := 0
	for _, list := range s {
		n += len(list)
	}
	return n
}

// Store is the durable mapping from customer id to that customer's orders.
// Implementations are safe for concurrent use.
type Store interface {
	// Append adds o to the end of o.CustomerID's list.
	Append(ctx context.Context, o Order) error
	// List returns a copy of the customer's orders, oldest first.
	List(ctx context.Context, customerID int64) ([]Order, error)
	// SetStatus applies upd to the matching order or returns ErrNotFound.
	SetStatus(ctx context.Context, customerID int64, requestID string, upd StatusUpdate) error
	// Snapshot returns a copy of all orders.
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// HasRequest reports whether list contains requestID.
func HasRequest(list []Order, requestID string) bool {
	for _, o := range list {
		if o.RequestID == requestID {
			return true
		}
	}
	return false
}
