package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
)

func TestShouldDeliver_TicketCreated(t *testing.T) {
	event := domain.NewTicketCreatedEvent(
		&domain.Ticket{ID: 1, Title: "Printer down", Category: "Hardware", Priority: domain.PriorityHigh, Status: domain.StatusOpen, RequesterID: uuid.New()},
		&domain.User{Email: "owner@example.com"},
	)

	tests := []struct {
		name     string
		identity domain.Identity
		want     bool
	}{
		{"TI staff receives new tickets", domain.Identity{UserID: uuid.New(), Role: domain.RoleTI}, true},
		{"common user never receives new tickets", domain.Identity{UserID: uuid.New(), Role: domain.RoleCommon}, false},
		{"unknown role fails closed", domain.Identity{UserID: uuid.New(), Role: domain.Role("admin")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ShouldDeliver(event, tt.identity))
		})
	}
}

func TestShouldDeliver_TicketCreated_OwnerIsTI(t *testing.T) {
	// The gate for ticket creation is role-based only: a TI user who filed
	// the ticket themselves still receives the notification.
	ownerID := uuid.New()
	event := domain.NewTicketCreatedEvent(
		&domain.Ticket{ID: 2, Title: "VPN flaky", Category: "Network", Priority: domain.PriorityMedium, Status: domain.StatusOpen, RequesterID: ownerID},
		&domain.User{ID: ownerID, Email: "ti@example.com"},
	)

	assert.True(t, domain.ShouldDeliver(event, domain.Identity{UserID: ownerID, Role: domain.RoleTI}))
}

func TestShouldDeliver_CommentCreated(t *testing.T) {
	ownerID := uuid.New()
	authorID := uuid.New()

	newComment := func(ticketOwner, author uuid.UUID) domain.Event {
		return domain.NewCommentCreatedEvent(
			&domain.Comment{ID: uuid.New(), TicketID: 7, AuthorID: author, Body: "taking a look"},
			&domain.Ticket{ID: 7, RequesterID: ticketOwner},
			&domain.User{ID: author, Email: "author@example.com"},
		)
	}

	tests := []struct {
		name     string
		event    domain.Event
		identity domain.Identity
		want     bool
	}{
		{
			"TI staff receives comments on any ticket",
			newComment(ownerID, authorID),
			domain.Identity{UserID: uuid.New(), Role: domain.RoleTI},
			true,
		},
		{
			"ticket owner receives comments from others",
			newComment(ownerID, authorID),
			domain.Identity{UserID: ownerID, Role: domain.RoleCommon},
			true,
		},
		{
			"owner never receives notification of their own comment",
			newComment(ownerID, ownerID),
			domain.Identity{UserID: ownerID, Role: domain.RoleCommon},
			false,
		},
		{
			"unrelated common user receives nothing",
			newComment(ownerID, authorID),
			domain.Identity{UserID: uuid.New(), Role: domain.RoleCommon},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ShouldDeliver(tt.event, tt.identity))
		})
	}
}

func TestShouldDeliver_StatusChanged_GloballyVisible(t *testing.T) {
	event := domain.NewTicketStatusChangedEvent(
		&domain.Ticket{ID: 3, Title: "Printer down", Status: domain.StatusInProgress, RequesterID: uuid.New()},
		&domain.User{Email: "owner@example.com"},
	)

	for _, role := range []domain.Role{domain.RoleCommon, domain.RoleTI} {
		assert.True(t, domain.ShouldDeliver(event, domain.Identity{UserID: uuid.New(), Role: role}),
			"status changes must reach role %q", role)
	}
}

func TestShouldDeliver_FailsClosed(t *testing.T) {
	ti := domain.Identity{UserID: uuid.New(), Role: domain.RoleTI}

	t.Run("unknown kind", func(t *testing.T) {
		event := domain.Event{ID: uuid.NewString(), Kind: domain.EventKind("TICKET_DELETED")}
		assert.False(t, domain.ShouldDeliver(event, ti))
	})

	t.Run("malformed comment payload", func(t *testing.T) {
		// Producer bug: payload is not a CommentPayload. Suppress for
		// everyone rather than panic.
		event := domain.Event{ID: uuid.NewString(), Kind: domain.EventCommentCreated, Payload: "garbage"}
		assert.False(t, domain.ShouldDeliver(event, ti))
		assert.False(t, domain.ShouldDeliver(event, domain.Identity{UserID: uuid.New(), Role: domain.RoleCommon}))
	})
}

func TestNewEvent_Metadata(t *testing.T) {
	first := domain.NewTicketCreatedEvent(&domain.Ticket{ID: 1, Title: "a", RequesterID: uuid.New()}, &domain.User{})
	second := domain.NewTicketCreatedEvent(&domain.Ticket{ID: 1, Title: "a", RequesterID: uuid.New()}, &domain.User{})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID, "event ids must be unique for consumer-side dedup")
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, domain.EventTicketCreated, first.Kind)
}
