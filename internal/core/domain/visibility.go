package domain

// ShouldDeliver decides whether a notification event is visible to the given
// identity. This is the single definition of the visibility rules; transports
// must not re-derive them.
//
// Rules:
//   - TICKET_CREATED goes to TI staff only.
//   - COMMENT_CREATED goes to TI staff, and to the ticket owner unless the
//     owner authored the comment themselves.
//   - TICKET_STATUS_CHANGED is globally visible.
//
// Unknown kinds and malformed payloads fail closed.
func ShouldDeliver(event Event, identity Identity) bool {
	switch event.Kind {
	case EventTicketCreated:
		return identity.Role == RoleTI

	case EventCommentCreated:
		payload, ok := event.Payload.(CommentPayload)
		if !ok {
			return false
		}
		if identity.Role == RoleTI {
			return true
		}
		return identity.UserID == payload.TicketOwnerID && identity.UserID != payload.AuthorID

	case EventTicketStatusChanged:
		return true

	default:
		return false
	}
}
