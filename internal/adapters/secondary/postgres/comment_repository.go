package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
	"github.com/vlago/helpdesk-backend/internal/core/ports"
)

// foreignKeyViolation is the Postgres error code for foreign key violations.
const foreignKeyViolation = "23503"

// CommentRepository is the secondary adapter for comment persistence.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// Ensure CommentRepository implements the ports.CommentRepository interface.
var _ ports.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(pool *pgxpool.Pool) ports.CommentRepository {
	return &CommentRepository{pool: pool}
}

const commentColumns = `id, ticket_id, author_id, body, created_at`

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Body,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Create persists a new comment entity.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO comments (id, ticket_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+commentColumns,
		comment.ID, comment.TicketID, comment.AuthorID, comment.Body, comment.CreatedAt,
	)

	created, err := scanComment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return created, nil
}

// ListByTicketID retrieves all comments for a ticket, oldest first.
func (r *CommentRepository) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commentColumns+` FROM comments
		WHERE ticket_id = $1
		ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}
