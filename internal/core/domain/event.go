package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind defines the type of real-time notification event.
type EventKind string

const (
	EventTicketCreated       EventKind = "TICKET_CREATED"
	EventCommentCreated      EventKind = "COMMENT_CREATED"
	EventTicketStatusChanged EventKind = "TICKET_STATUS_CHANGED"
)

// Event is an immutable, transient record of a domain state change, pushed
// to live subscriber sessions. Events are never persisted: delivery is
// best-effort, at most once, with no replay for subscribers that were
// disconnected when the event fired. The ID lets consumers deduplicate
// across reconnects.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is the authenticated principal a subscriber session carries.
type Identity struct {
	UserID uuid.UUID `json:"id"`
	Role   Role      `json:"role"`
}

// TicketPayload is the denormalized ticket summary carried by ticket events.
// It holds enough data for a subscriber to render a notification without a
// follow-up fetch.
type TicketPayload struct {
	ID         int64          `json:"id"`
	Title      string         `json:"title"`
	Category   string         `json:"category"`
	Priority   TicketPriority `json:"priority"`
	Status     TicketStatus   `json:"status"`
	OwnerID    uuid.UUID      `json:"ownerId"`
	OwnerEmail string         `json:"ownerEmail"`
}

// CommentPayload is the denormalized comment summary carried by comment events.
type CommentPayload struct {
	ID            uuid.UUID `json:"id"`
	TicketID      int64     `json:"ticketId"`
	TicketOwnerID uuid.UUID `json:"ticketOwnerId"`
	AuthorID      uuid.UUID `json:"authorId"`
	AuthorEmail   string    `json:"authorEmail"`
	Content       string    `json:"content"`
}

func newEvent(kind EventKind, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTicketCreatedEvent builds the event published after a ticket insert commits.
func NewTicketCreatedEvent(ticket *Ticket, owner *User) Event {
	return newEvent(EventTicketCreated, TicketPayload{
		ID:         ticket.ID,
		Title:      ticket.Title,
		Category:   ticket.Category,
		Priority:   ticket.Priority,
		Status:     ticket.Status,
		OwnerID:    ticket.RequesterID,
		OwnerEmail: owner.Email,
	})
}

// NewTicketStatusChangedEvent builds the event published after a status update commits.
func NewTicketStatusChangedEvent(ticket *Ticket, owner *User) Event {
	return newEvent(EventTicketStatusChanged, TicketPayload{
		ID:         ticket.ID,
		Title:      ticket.Title,
		Category:   ticket.Category,
		Priority:   ticket.Priority,
		Status:     ticket.Status,
		OwnerID:    ticket.RequesterID,
		OwnerEmail: owner.Email,
	})
}

// NewCommentCreatedEvent builds the event published after a comment insert commits.
func NewCommentCreatedEvent(comment *Comment, ticket *Ticket, author *User) Event {
	return newEvent(EventCommentCreated, CommentPayload{
		ID:            comment.ID,
		TicketID:      comment.TicketID,
		TicketOwnerID: ticket.RequesterID,
		AuthorID:      comment.AuthorID,
		AuthorEmail:   author.Email,
		Content:       comment.Body,
	})
}
