package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
)

// MaxCommentBodyLength bounds the size of a single comment.
const MaxCommentBodyLength = 5000

// Comment is a message exchanged on a ticket between the requester and IT staff.
type Comment struct {
	ID        uuid.UUID
	TicketID  int64
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

// CommentParams holds the input for creating a new comment.
type CommentParams struct {
	TicketID int64
	AuthorID uuid.UUID
	Body     string
}

// NewComment is a factory function to create a valid new comment.
func NewComment(params CommentParams) (*Comment, error) {
	if params.TicketID <= 0 {
		return nil, apperrors.ErrTicketIDRequired
	}
	if params.AuthorID == uuid.Nil {
		return nil, apperrors.ErrAuthorIDRequired
	}
	if params.Body == "" {
		return nil, apperrors.ErrCommentBodyRequired
	}
	if len(params.Body) > MaxCommentBodyLength {
		return nil, apperrors.ErrCommentBodyTooLong
	}

	return &Comment{
		ID:        uuid.New(),
		TicketID:  params.TicketID,
		AuthorID:  params.AuthorID,
		Body:      params.Body,
		CreatedAt: time.Now().UTC(),
	}, nil
}
