package users

import (
	"context"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
	"blogPlatform/repository"
)

// Relationship labels returned by FriendshipStatus, relative to the viewer.
const (
	RelationNone            = "none"
	RelationFriends         = "friends"
	RelationRequestSent     = "request_sent"
	RelationRequestReceived = "request_received"
	RelationRejected        = "rejected"
)

// SendRequest asks toID to become friends with fromID. A pending request in the
// opposite direction is accepted instead, and a rejected pair is reopened.
func (s *Service) SendRequest(ctx context.Context, fromID, toID int64) (*models.Friendship, error) {
	if fromID == toID {
		return nil, apperr.Invalid("cannot send a friend request to yourself")
	}
	target, err := s.users.GetByID(ctx, toID)
	if err != nil {
		return nil, apperr.Wrap(err, "get user %d", toID)
	}
	if target == nil || !target.IsActive {
		return nil, apperr.NotFound("user not found")
	}
	existing, err := s.friendships.GetBetween(ctx, fromID, toID)
	if err != nil {
		return nil, apperr.Wrap(err, "get friendship")
	}
	now := s.now()
	if existing == nil {
		f, err := s.friendships.Create(ctx, fromID, toID)
		if err != nil {
			if isDuplicate(err) {
				return nil, apperr.Conflict("a friendship already exists between these users")
			}
			return nil, apperr.Wrap(err, "create friendship")
		}
		s.log.Info("friend request sent", zap.Int64("from", fromID), zap.Int64("to", toID))
		return f, nil
	}
	switch existing.Status {
	case models.FriendshipAccepted:
		return nil, apperr.Conflict("already friends")
	case models.FriendshipPending:
		if existing.RequesterID == fromID {
			return nil, apperr.Conflict("friend request already sent")
		}
		if err := s.friendships.Respond(ctx, existing.ID, fromID, models.FriendshipAccepted, now); err != nil {
			if isNoRows(err) {
				return nil, apperr.Conflict("friend request is no longer pending")
			}
			return nil, apperr.Wrap(err, "accept friendship")
		}
		s.log.Info("friend request accepted", zap.Int64("friendship_id", existing.ID))
	default:
		if err := s.friendships.Reopen(ctx, existing.ID, fromID, toID, now); err != nil {
			if isNoRows(err) {
				return nil, apperr.Conflict("friendship changed concurrently")
			}
			return nil, apperr.Wrap(err, "reopen friendship")
		}
		s.log.Info("friend request reopened", zap.Int64("friendship_id", existing.ID))
	}
	return s.getFriendship(ctx, existing.ID)
}

func (s *Service) getFriendship(ctx context.Context, id int64) (*models.Friendship, error) {
	f, err := s.friendships.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get friendship %d", id)
	}
	if f == nil {
		return nil, apperr.NotFound("friend request not found")
	}
	return f, nil
}

// Respond accepts or rejects a pending request addressed to userID.
func (s *Service) Respond(ctx context.Context, userID, friendshipID int64, accept bool) (*models.Friendship, error) {
	f, err := s.getFriendship(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if !f.Involves(userID) {
		return nil, apperr.NotFound("friend request not found")
	}
	if f.AddresseeID != userID {
		return nil, apperr.Forbidden("only the recipient can respond to a friend request")
	}
	if f.Status != models.FriendshipPending {
		return nil, apperr.Conflict("friend request is not pending")
	}
	status := models.FriendshipRejected
	if accept {
		status = models.FriendshipAccepted
	}
	if err := s.friendships.Respond(ctx, f.ID, userID, status, s.now()); err != nil {
		if isNoRows(err) {
			return nil, apperr.Conflict("friend request is not pending")
		}
		return nil, apperr.Wrap(err, "respond to friendship")
	}
	s.log.Info("friend request answered", zap.Int64("friendship_id", f.ID), zap.String("status", string(status)))
	return s.getFriendship(ctx, f.ID)
}

// Cancel withdraws a pending request sent by userID.
func (s *Service) Cancel(ctx context.Context, userID, friendshipID int64) error {
	f, err := s.getFriendship(ctx, friendshipID)
	if err != nil {
		return err
	}
	if !f.Involves(userID) {
		return apperr.NotFound("friend request not found")
	}
	if f.RequesterID != userID {
		return apperr.Forbidden("only the sender can cancel a friend request")
	}
	if f.Status != models.FriendshipPending {
		return apperr.Conflict("friend request is not pending")
	}
	if err := s.friendships.Delete(ctx, f.ID); err != nil && !isNoRows(err) {
		return apperr.Wrap(err, "delete friendship")
	}
	return nil
}

// Unfriend removes an accepted friendship between userID and otherID.
func (s *Service) Unfriend(ctx context.Context, userID, otherID int64) error {
	f, err := s.friendships.GetBetween(ctx, userID, otherID)
	if err != nil {
		return apperr.Wrap(err, "get friendship")
	}
	if f == nil || f.Status != models.FriendshipAccepted {
		return apperr.NotFound("not friends with this user")
	}
	if err := s.friendships.Delete(ctx, f.ID); err != nil && !isNoRows(err) {
		return apperr.Wrap(err, "delete friendship")
	}
	s.log.Info("unfriended", zap.Int64("user_id", userID), zap.Int64("other_id", otherID))
	return nil
}

func (s *Service) listFriendships(ctx context.Context, userID int64, status models.FriendshipStatus, dir repository.FriendshipDirection, q service.PageQuery) (models.Page[models.FriendshipView], error) {
	page := q.Params()
	items, total, err := s.friendships.ListForUser(ctx, userID, status, dir, page)
	if err != nil {
		return models.Page[models.FriendshipView]{}, apperr.Wrap(err, "list friendships")
	}
	return models.NewPage(items, total, page.Page, page.PageSize), nil
}

func (s *Service) ListFriends(ctx context.Context, userID int64, q service.PageQuery) (models.Page[models.FriendshipView], error) {
	return s.listFriendships(ctx, userID, models.FriendshipAccepted, repository.DirectionAny, q)
}

func (s *Service) ListIncoming(ctx context.Context, userID int64, q service.PageQuery) (models.Page[models.FriendshipView], error) {
	return s.listFriendships(ctx, userID, models.FriendshipPending, repository.DirectionIncoming, q)
}

func (s *Service) ListOutgoing(ctx context.Context, userID int64, q service.PageQuery) (models.Page[models.FriendshipView], error) {
	return s.listFriendships(ctx, userID, models.FriendshipPending, repository.DirectionOutgoing, q)
}

// FriendshipStatus describes the relation of otherID as seen by viewerID.
func (s *Service) FriendshipStatus(ctx context.Context, viewerID, otherID int64) (string, error) {
	if viewerID == otherID {
		return "", nil
	}
	f, err := s.friendships.GetBetween(ctx, viewerID, otherID)
	if err != nil {
		return "", apperr.Wrap(err, "get friendship")
	}
	if f == nil {
		return RelationNone, nil
	}
	switch f.Status {
	case models.FriendshipAccepted:
		return RelationFriends, nil
	case models.FriendshipPending:
		if f.RequesterID == viewerID {
			return RelationRequestSent, nil
		}
		return RelationRequestReceived, nil
	default:
		return RelationRejected, nil
	}
}
