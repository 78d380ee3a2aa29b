package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vlago/helpdesk-backend/internal/core/domain"
	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
)

// CommentService implements the business logic for comments.
type CommentService struct {
	commentRepo ports.CommentRepository
	ticketRepo  ports.TicketRepository
	userRepo    ports.UserRepository
	notifier    ports.Notifier
	publisher   ports.EventPublisher
	wg          sync.WaitGroup
}

// Ensure implementation matches the interface.
var _ ports.CommentService = (*CommentService)(nil)

// NewCommentService creates a new service for comment logic.
func NewCommentService(
	commentRepo ports.CommentRepository,
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		publisher:   publisher,
	}
}

// accessibleTicket fetches a ticket if the actor is allowed to see it, which
// is a prerequisite for viewing or making comments.
func (s *CommentService) accessibleTicket(ctx context.Context, ticketID int64, actor domain.Identity) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOwnedBy(actor.UserID) && actor.Role != domain.RoleTI {
		return nil, apperrors.ErrForbidden
	}
	return ticket, nil
}

// CreateComment adds a new comment to a ticket.
func (s *CommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	// 1. Check if the actor can access the ticket they're commenting on.
	ticket, err := s.accessibleTicket(ctx, params.TicketID, params.Actor)
	if err != nil {
		return nil, err
	}

	// 2. The author's email goes into the published event payload.
	author, err := s.userRepo.GetByID(ctx, params.Actor.UserID)
	if err != nil {
		return nil, err
	}

	// 3. Create the domain entity.
	comment, err := domain.NewComment(domain.CommentParams{
		TicketID: params.TicketID,
		AuthorID: params.Actor.UserID,
		Body:     params.Body,
	})
	if err != nil {
		return nil, err
	}

	// 4. Persist the comment.
	newComment, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, err
	}

	// 5. Publish after the insert committed. The bus filter decides per
	// subscriber who actually sees the event.
	s.publisher.Publish(domain.NewCommentCreatedEvent(newComment, ticket, author))

	// 6. Email the requester unless they wrote the comment themselves.
	if ticket.RequesterID != params.Actor.UserID {
		s.notifyNewComment(ticket)
	}

	return newComment, nil
}

// GetCommentsForTicket retrieves all comments for a specific ticket.
func (s *CommentService) GetCommentsForTicket(ctx context.Context, params ports.GetCommentsParams) ([]*domain.Comment, error) {
	if _, err := s.accessibleTicket(ctx, params.TicketID, params.Actor); err != nil {
		return nil, err
	}

	return s.commentRepo.ListByTicketID(ctx, params.TicketID)
}

// notifyNewComment sends an email notification for a new comment
func (s *CommentService) notifyNewComment(ticket *domain.Ticket) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx := context.Background()

		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: ticket.RequesterID,
			Subject:         fmt.Sprintf("A new comment was added to your ticket: #%d", ticket.ID),
			Message:         fmt.Sprintf("A new comment has been added to your ticket '%s'.", ticket.Title),
			TicketID:        ticket.ID,
		})
	}()
}

// Shutdown waits for in-flight notification goroutines to finish.
func (s *CommentService) Shutdown() {
	s.wg.Wait()
}
