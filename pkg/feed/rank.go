package feed

import (
	"sort"

	"atelier/internal/store"
	"atelier/pkg/novelty"
)

// rank partitions candidates into unseen and seen against the tracker,
// orders each partition newest-first, concatenates unseen ahead of seen,
// and cuts the [offset, offset+limit) window. hasMore reflects whether
// the pre-truncation length reached the aggregator's over-fetch depth —
// a deliberate approximation, not an exact remaining count.
func rank(candidates []store.Note, tracker *novelty.Tracker, offset, limit, fetchDepth int) ([]store.Note, bool) {
	var unseen, seen []store.Note
	for _, c := range candidates {
		if tracker != nil && tracker.Contains(c.ID) {
			seen = append(seen, c)
		} else {
			unseen = append(unseen, c)
		}
	}

	sortNewestFirst(unseen)
	sortNewestFirst(seen)

	ordered := append(unseen, seen...)
	hasMore := fetchDepth > 0 && len(ordered) >= fetchDepth

	if offset >= len(ordered) {
		return nil, hasMore
	}
	end := offset + limit
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[offset:end], hasMore
}

// sortNewestFirst orders by created_at descending with an id tie-break,
// so a fixed input always ranks identically.
func sortNewestFirst(notes []store.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
}

// provenanceContext carries the resolved relationship sets the all scope
// uses to explain why each note is present.
type provenanceContext struct {
	userID      string
	friends     map[string]bool
	subscribed  map[string]bool
	memberships []CommunityMembership
}

// label classifies one note. Precedence: own notes carry no label, then
// friend, then subscribed portfolio, then first community (in membership
// order) whose member set contains the author.
func (pc *provenanceContext) label(n *store.Note) *Provenance {
	if n.AuthorID == pc.userID {
		return nil
	}
	if pc.friends[n.AuthorID] {
		return &Provenance{Kind: SourceFriend}
	}
	for _, pid := range n.Portfolios {
		if pc.subscribed[pid] {
			return &Provenance{Kind: SourceSubscribed}
		}
	}
	for _, m := range pc.memberships {
		for _, member := range m.MemberIDs {
			if member == n.AuthorID {
				return &Provenance{
					Kind:          SourceCommunity,
					CommunityID:   m.ID,
					CommunityName: m.Name,
				}
			}
		}
	}
	return nil
}
