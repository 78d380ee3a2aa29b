package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
	Requester   domain.Identity
}

// UpdateStatusParams defines the input for changing a ticket's status.
type UpdateStatusParams struct {
	TicketID int64
	Status   domain.TicketStatus
	Actor    domain.Identity
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	Viewer   domain.Identity
	Limit    int
	Offset   int
	Status   *string
	Priority *string
}

// CreateCommentParams defines the input for creating a comment.
type CreateCommentParams struct {
	TicketID int64
	Actor    domain.Identity
	Body     string
}

// GetCommentsParams defines the input for retrieving comments.
type GetCommentsParams struct {
	TicketID int64
	Actor    domain.Identity
}

// NotificationParams defines the input for sending an email notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	TicketID        int64
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64, viewer domain.Identity) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	Shutdown()
}

// CommentService defines the port for comment-related business logic.
type CommentService interface {
	CreateComment(ctx context.Context, params CreateCommentParams) (*domain.Comment, error)
	GetCommentsForTicket(ctx context.Context, params GetCommentsParams) ([]*domain.Comment, error)
}

// EventPublisher is the port producers use to fan out notification events.
// Publish is fire-and-forget: it must be called only after the underlying
// write has committed, and it never reports per-subscriber failures back
// to the producer.
type EventPublisher interface {
	Publish(event domain.Event)
}

// Notifier defines the port for sending asynchronous email notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// IdentityResolver resolves a verified token subject to a live identity.
// Implementations must fail closed: a subject referencing a deleted or
// deactivated account resolves to an error, never a zero identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID uuid.UUID) (domain.Identity, error)
}
