package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
	"github.com/vlago/helpdesk-backend/internal/core/mocks"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
	"github.com/vlago/helpdesk-backend/internal/core/services"
)

type commentServiceMocks struct {
	comments  *mocks.MockCommentRepository
	tickets   *mocks.MockTicketRepository
	users     *mocks.MockUserRepository
	notifier  *mocks.MockNotifier
	publisher *mocks.MockEventPublisher
}

func newCommentService() (*services.CommentService, commentServiceMocks) {
	m := commentServiceMocks{
		comments:  mocks.NewMockCommentRepository(),
		tickets:   mocks.NewMockTicketRepository(),
		users:     mocks.NewMockUserRepository(),
		notifier:  mocks.NewMockNotifier(),
		publisher: mocks.NewMockEventPublisher(),
	}
	svc := services.NewCommentService(m.comments, m.tickets, m.users, m.notifier, m.publisher)
	return svc, m
}

func TestCommentService_CreateComment(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	tiID := uuid.New()
	ticketID := int64(42)

	ticket := &domain.Ticket{
		ID:          ticketID,
		Title:       "Printer down",
		RequesterID: ownerID,
		Status:      domain.StatusOpen,
	}

	t.Run("TI comment publishes event and emails the owner", func(t *testing.T) {
		svc, m := newCommentService()

		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)
		m.users.On("GetByID", ctx, tiID).
			Return(&domain.User{ID: tiID, Email: "ti@example.com", Role: domain.RoleTI, IsActive: true}, nil)
		m.comments.On("Create", ctx, mock.AnythingOfType("*domain.Comment")).
			Return(&domain.Comment{
				ID:       uuid.New(),
				TicketID: ticketID,
				AuthorID: tiID,
				Body:     "We are on it",
			}, nil)
		m.publisher.On("Publish", mock.MatchedBy(func(event domain.Event) bool {
			payload, ok := event.Payload.(domain.CommentPayload)
			return ok &&
				event.Kind == domain.EventCommentCreated &&
				payload.TicketID == ticketID &&
				payload.TicketOwnerID == ownerID &&
				payload.AuthorID == tiID
		})).Return()
		m.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(params ports.NotificationParams) bool {
			return params.RecipientUserID == ownerID && params.TicketID == ticketID
		})).Return()

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: tiID, Role: domain.RoleTI},
			Body:     "We are on it",
		})

		require.NoError(t, err)
		assert.Equal(t, "We are on it", comment.Body)

		svc.Shutdown()
		m.publisher.AssertExpectations(t)
		m.notifier.AssertExpectations(t)
	})

	t.Run("owner's own comment sends no email", func(t *testing.T) {
		svc, m := newCommentService()

		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)
		m.users.On("GetByID", ctx, ownerID).
			Return(&domain.User{ID: ownerID, Email: "owner@example.com", Role: domain.RoleCommon, IsActive: true}, nil)
		m.comments.On("Create", ctx, mock.AnythingOfType("*domain.Comment")).
			Return(&domain.Comment{
				ID:       uuid.New(),
				TicketID: ticketID,
				AuthorID: ownerID,
				Body:     "Still broken",
			}, nil)
		m.publisher.On("Publish", mock.Anything).Return()

		_, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: ownerID, Role: domain.RoleCommon},
			Body:     "Still broken",
		})

		require.NoError(t, err)
		svc.Shutdown()
		m.notifier.AssertNotCalled(t, "Notify")
		// The event still goes out: the bus filter decides who sees it.
		m.publisher.AssertExpectations(t)
	})

	t.Run("common user cannot comment on another user's ticket", func(t *testing.T) {
		svc, m := newCommentService()

		strangerID := uuid.New()
		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: strangerID, Role: domain.RoleCommon},
			Body:     "Me too",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.comments.AssertNotCalled(t, "Create")
		m.publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("nothing published when insert fails", func(t *testing.T) {
		svc, m := newCommentService()

		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)
		m.users.On("GetByID", ctx, tiID).
			Return(&domain.User{ID: tiID, Email: "ti@example.com", Role: domain.RoleTI, IsActive: true}, nil)
		m.comments.On("Create", ctx, mock.AnythingOfType("*domain.Comment")).
			Return(nil, apperrors.ErrInternal)

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: tiID, Role: domain.RoleTI},
			Body:     "We are on it",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrInternal)
		m.publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		svc, m := newCommentService()

		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)
		m.users.On("GetByID", ctx, tiID).
			Return(&domain.User{ID: tiID, Email: "ti@example.com", Role: domain.RoleTI, IsActive: true}, nil)

		comment, err := svc.CreateComment(ctx, ports.CreateCommentParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: tiID, Role: domain.RoleTI},
			Body:     "",
		})

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrCommentBodyRequired)
		m.comments.AssertNotCalled(t, "Create")
	})
}

func TestCommentService_GetCommentsForTicket(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	ticketID := int64(42)

	ticket := &domain.Ticket{
		ID:          ticketID,
		Title:       "Printer down",
		RequesterID: ownerID,
		Status:      domain.StatusOpen,
	}

	t.Run("owner reads comments", func(t *testing.T) {
		svc, m := newCommentService()

		expected := []*domain.Comment{
			{ID: uuid.New(), TicketID: ticketID, AuthorID: ownerID, Body: "Still broken"},
		}

		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)
		m.comments.On("ListByTicketID", ctx, ticketID).Return(expected, nil)

		comments, err := svc.GetCommentsForTicket(ctx, ports.GetCommentsParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: ownerID, Role: domain.RoleCommon},
		})

		require.NoError(t, err)
		assert.Len(t, comments, 1)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		svc, m := newCommentService()

		m.tickets.On("GetByID", ctx, ticketID).Return(ticket, nil)

		comments, err := svc.GetCommentsForTicket(ctx, ports.GetCommentsParams{
			TicketID: ticketID,
			Actor:    domain.Identity{UserID: uuid.New(), Role: domain.RoleCommon},
		})

		assert.Nil(t, comments)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		m.comments.AssertNotCalled(t, "ListByTicketID")
	})
}
