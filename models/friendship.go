package models

import "time"

// FriendshipStatus is the lifecycle state of a friendship request.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// Friendship is one row per unordered user pair. RequesterID sent the latest request.
type Friendship struct {
	ID          int64            `db:"id" json:"id"`
	RequesterID int64            `db:"requester_id" json:"requesterId"`
	AddresseeID int64            `db:"addressee_id" json:"addresseeId"`
	Status      FriendshipStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updatedAt"`
	RespondedAt *time.Time       `db:"responded_at" json:"respondedAt,omitempty"`
}

// Other returns the user on the opposite side of the pair from userID.
func (f *Friendship) Other(userID int64) int64 {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// Involves reports whether userID is one side of the pair.
func (f *Friendship) Involves(userID int64) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// FriendshipView pairs a friendship with the other user's public fields.
type FriendshipView struct {
	Friendship
	OtherUserID      int64  `json:"otherUserId"`
	OtherUsername    string `json:"otherUsername"`
	OtherDisplayName string `json:"otherDisplayName"`
}
