// Package feed assembles and ranks a user's note feed. Candidates are
// gathered from relationship sources (friendships, community memberships,
// portfolio subscriptions, owned portfolios), deduplicated, then ordered
// unseen-first using the per-user novelty tracker.
package feed

import (
	"errors"

	"atelier/internal/store"
)

// Scope selects which relationship sources gate content inclusion.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeFriends   Scope = "friends"
	ScopeCommunity Scope = "community"
)

var (
	// ErrInvalidRequest marks a request rejected before any resolver runs,
	// e.g. a community scope without a community id.
	ErrInvalidRequest = errors.New("invalid feed request")

	// ErrNotCommunity marks a community feed request whose target exists
	// but is not a community-kind portfolio.
	ErrNotCommunity = errors.New("not a community portfolio")
)

// Request describes one feed read. An empty UserID means the caller is
// unauthenticated and receives the public feed.
type Request struct {
	UserID      string
	Scope       Scope
	CommunityID string
	Offset      int
	Limit       int
}

// Provenance source kinds for the all scope.
const (
	SourceFriend     = "friend"
	SourceSubscribed = "subscribed"
	SourceCommunity  = "community"
)

// Provenance explains why a note appears in the all-scope feed. Display
// only; it never affects ranking.
type Provenance struct {
	Kind          string `json:"kind"`
	CommunityID   string `json:"community_id,omitempty"`
	CommunityName string `json:"community_name,omitempty"`
}

// RankedNote is a note plus its optional provenance label.
type RankedNote struct {
	store.Note
	Source *Provenance `json:"source,omitempty"`
}

// Page is one ranked feed page.
type Page struct {
	Items   []RankedNote `json:"items"`
	HasMore bool         `json:"has_more"`
}

// CommunityMembership describes one community the user belongs to,
// resolved for the all scope. MemberIDs includes the owner.
type CommunityMembership struct {
	ID        string
	Name      string
	MemberIDs []string
}
