package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
)

// Helper to create a user for ticket and comment tests
func createTestUser(t *testing.T, ctx context.Context, userRepo ports.UserRepository) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           uuid.New(),
		FullName:     "Ticket Requester",
		Email:        uuid.NewString() + "@example.com", // Ensure unique email
		PasswordHash: "testpassword",
		Sector:       "finance",
		Role:         domain.RoleCommon,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	createdUser, err := userRepo.Create(ctx, user)
	require.NoError(t, err)
	return createdUser
}

// Helper to create a ticket owned by the given user
func createTestTicket(t *testing.T, ctx context.Context, ticketRepo ports.TicketRepository, params domain.TicketParams) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(params)
	require.NoError(t, err)
	created, err := ticketRepo.Create(ctx, ticket)
	require.NoError(t, err)
	// Keep created_at strictly increasing across helper calls so DESC
	// ordering assertions are deterministic.
	time.Sleep(time.Millisecond)
	return created
}

func TestTicketRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	ticketRepo := NewTicketRepository(testPool)
	userRepo := NewUserRepository(testPool)

	testUser := createTestUser(t, ctx, userRepo)

	createdTicket := createTestTicket(t, ctx, ticketRepo, domain.TicketParams{
		Title:       "Test Ticket",
		Description: "This is a description",
		Category:    "hardware",
		Priority:    domain.PriorityMedium,
		RequesterID: testUser.ID,
	})
	assert.NotZero(t, createdTicket.ID)

	foundTicket, err := ticketRepo.GetByID(ctx, createdTicket.ID)
	require.NoError(t, err, "Failed to get ticket by ID")

	assert.Equal(t, "Test Ticket", foundTicket.Title)
	assert.Equal(t, "This is a description", foundTicket.Description)
	assert.Equal(t, "hardware", foundTicket.Category)
	assert.Equal(t, domain.PriorityMedium, foundTicket.Priority)
	assert.Equal(t, testUser.ID, foundTicket.RequesterID)
	assert.Equal(t, domain.StatusOpen, foundTicket.Status)
	assert.Nil(t, foundTicket.UpdatedAt)
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	ticketRepo := NewTicketRepository(testPool)

	_, err := ticketRepo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_Update(t *testing.T) {
	ctx := context.Background()
	ticketRepo := NewTicketRepository(testPool)
	userRepo := NewUserRepository(testPool)

	testUser := createTestUser(t, ctx, userRepo)
	ticket := createTestTicket(t, ctx, ticketRepo, domain.TicketParams{
		Title:       "Needs triage",
		Description: "Broken keyboard",
		Category:    "hardware",
		RequesterID: testUser.ID,
	})

	require.NoError(t, ticket.UpdateStatus(domain.StatusInProgress))

	updated, err := ticketRepo.Update(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.UpdatedAt)

	// The change survives a round trip
	found, err := ticketRepo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, found.Status)
}

func TestTicketRepository_ListPaginated(t *testing.T) {
	ctx := context.Background()
	ticketRepo := NewTicketRepository(testPool)
	userRepo := NewUserRepository(testPool)

	user1 := createTestUser(t, ctx, userRepo)
	user2 := createTestUser(t, ctx, userRepo)

	t1 := createTestTicket(t, ctx, ticketRepo, domain.TicketParams{Title: "T1", Category: "hardware", Priority: domain.PriorityHigh, RequesterID: user1.ID})
	t2 := createTestTicket(t, ctx, ticketRepo, domain.TicketParams{Title: "T2", Category: "software", Priority: domain.PriorityLow, RequesterID: user1.ID})
	t3 := createTestTicket(t, ctx, ticketRepo, domain.TicketParams{Title: "T3", Category: "network", Priority: domain.PriorityMedium, RequesterID: user1.ID})
	createTestTicket(t, ctx, ticketRepo, domain.TicketParams{Title: "T4", Category: "hardware", Priority: domain.PriorityHigh, RequesterID: user2.ID})

	// Close T3 so the status filter has something to find.
	require.NoError(t, t3.UpdateStatus(domain.StatusClosed))
	_, err := ticketRepo.Update(ctx, t3)
	require.NoError(t, err)

	// Scoped to user 1
	tickets1, err := ticketRepo.ListPaginated(ctx, ports.ListTicketsRepoParams{
		RequesterID: &user1.ID,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Len(t, tickets1, 3)

	// Scoped to user 2
	tickets2, err := ticketRepo.ListPaginated(ctx, ports.ListTicketsRepoParams{
		RequesterID: &user2.ID,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, tickets2, 1)
	assert.Equal(t, "T4", tickets2[0].Title)

	// Pagination: limit 1, offset 1, ordered by created_at DESC
	tickets3, err := ticketRepo.ListPaginated(ctx, ports.ListTicketsRepoParams{
		RequesterID: &user1.ID,
		Limit:       1,
		Offset:      1,
	})
	require.NoError(t, err)
	require.Len(t, tickets3, 1)
	assert.Equal(t, t2.Title, tickets3[0].Title)

	// Priority filter
	priority := string(domain.PriorityHigh)
	tickets4, err := ticketRepo.ListPaginated(ctx, ports.ListTicketsRepoParams{
		RequesterID: &user1.ID,
		Priority:    &priority,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, tickets4, 1)
	assert.Equal(t, t1.Title, tickets4[0].Title)

	// Status filter
	status := string(domain.StatusClosed)
	tickets5, err := ticketRepo.ListPaginated(ctx, ports.ListTicketsRepoParams{
		RequesterID: &user1.ID,
		Status:      &status,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, tickets5, 1)
	assert.Equal(t, t3.Title, tickets5[0].Title)
}
