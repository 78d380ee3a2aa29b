package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vlago/helpdesk-backend/internal/core/domain"
	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
)

// TicketService implements business logic for ticket management
type TicketService struct {
	ticketRepo ports.TicketRepository
	userRepo   ports.UserRepository
	notifier   ports.Notifier
	publisher  ports.EventPublisher
	wg         sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	notifier ports.Notifier,
	publisher ports.EventPublisher,
) ports.TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		publisher:  publisher,
	}
}

// CreateTicket handles the use case for submitting a new ticket
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	// 1. The requester must be a live account; its email also goes into the
	// published event payload.
	owner, err := s.userRepo.GetByID(ctx, params.Requester.UserID)
	if err != nil {
		return nil, err
	}

	// 2. Create domain entity with validation
	ticketParams := domain.TicketParams{
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Priority:    params.Priority,
		RequesterID: params.Requester.UserID,
	}

	ticket, err := domain.NewTicket(ticketParams)
	if err != nil {
		return nil, err // Validation errors are returned here
	}

	// 3. Persist the ticket
	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	// 4. Publish after the insert committed. Publish never blocks on slow
	// subscribers, so there is no reason to push it off-request.
	s.publisher.Publish(domain.NewTicketCreatedEvent(created, owner))

	return created, nil
}

// GetTicket retrieves a specific ticket with authorization
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64, viewer domain.Identity) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	// Owners see their own tickets; TI staff see everything.
	if !ticket.IsOwnedBy(viewer.UserID) && viewer.Role != domain.RoleTI {
		return nil, apperrors.ErrForbidden
	}

	return ticket, nil
}

// UpdateStatus changes a ticket's status with business rule enforcement
func (s *TicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	// 1. Only TI staff move tickets through the workflow
	if params.Actor.Role != domain.RoleTI {
		return nil, apperrors.ErrForbidden
	}

	// 2. Fetch and update domain entity
	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	// 3. Apply status change (domain validates the transition)
	if err := ticket.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	// 4. Persist changes
	updatedTicket, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, updatedTicket.RequesterID)
	if err != nil {
		return nil, err
	}

	// 5. Publish after the update committed
	s.publisher.Publish(domain.NewTicketStatusChangedEvent(updatedTicket, owner))

	// 6. Send email notification (async, in background context)
	if updatedTicket.RequesterID != params.Actor.UserID {
		s.notifyStatusUpdate(updatedTicket)
	}

	return updatedTicket, nil
}

// ListTickets retrieves tickets based on the viewer's role
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	repoParams := ports.ListTicketsRepoParams{
		Limit:    int32(params.Limit),
		Offset:   int32(params.Offset),
		Status:   params.Status,
		Priority: params.Priority,
	}

	// TI staff see the full queue; common users only their own tickets.
	if params.Viewer.Role != domain.RoleTI {
		requesterID := params.Viewer.UserID
		repoParams.RequesterID = &requesterID
	}

	return s.ticketRepo.ListPaginated(ctx, repoParams)
}

// notifyStatusUpdate sends email notification for status changes
func (s *TicketService) notifyStatusUpdate(ticket *domain.Ticket) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		ctx := context.Background()

		s.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: ticket.RequesterID,
			Subject:         fmt.Sprintf("Your ticket status has been updated: #%d", ticket.ID),
			Message:         fmt.Sprintf("The status of your ticket '%s' was changed to %s.", ticket.Title, ticket.Status),
			TicketID:        ticket.ID,
		})
	}()
}

// Shutdown waits for in-flight notification goroutines to finish.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}
