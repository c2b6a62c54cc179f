package feed

import (
	"context"
	"fmt"

	"atelier/internal/store"
)

// The resolvers below are pure reads: an empty relationship set is an
// empty slice, never an error. Data-access failures propagate and abort
// the whole feed request, so a partial feed is never assembled.

// resolveFriendIDs returns the other party of every accepted friendship
// touching userID.
func resolveFriendIDs(ctx context.Context, s store.Store, userID string) ([]string, error) {
	edges, err := s.AcceptedFriendships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve friends: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range edges {
		other := e.Other(userID)
		if other == "" || seen[other] {
			continue
		}
		seen[other] = true
		ids = append(ids, other)
	}
	return ids, nil
}

// resolveCommunityMemberIDs returns the owner plus every member of the
// given community. A missing portfolio surfaces store.ErrNotFound; a
// portfolio of the wrong kind surfaces ErrNotCommunity. Both are caller
// errors, distinct from a community that simply has no content.
func resolveCommunityMemberIDs(ctx context.Context, s store.Store, communityID string) ([]string, error) {
	p, err := s.GetPortfolio(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("resolve community %s: %w", communityID, err)
	}
	if p.Kind != store.KindCommunity {
		return nil, fmt.Errorf("portfolio %s: %w", communityID, ErrNotCommunity)
	}
	return memberIDsWithOwner(p), nil
}

// resolveAllCommunityMemberships returns every community where userID is
// the owner or a listed member, ordered by community id so provenance
// labeling is deterministic.
func resolveAllCommunityMemberships(ctx context.Context, s store.Store, userID string) ([]CommunityMembership, error) {
	portfolios, err := s.PortfoliosWithUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve community memberships: %w", err)
	}

	var memberships []CommunityMembership
	for i := range portfolios {
		p := &portfolios[i]
		if p.Kind != store.KindCommunity {
			continue
		}
		memberships = append(memberships, CommunityMembership{
			ID:        p.ID,
			Name:      p.Name,
			MemberIDs: memberIDsWithOwner(p),
		})
	}
	return memberships, nil
}

// resolveSubscribedPortfolioIDs returns the portfolio ids userID has an
// explicit subscription record for.
func resolveSubscribedPortfolioIDs(ctx context.Context, s store.Store, userID string) ([]string, error) {
	ids, err := s.SubscribedPortfolioIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve subscriptions: %w", err)
	}
	return ids, nil
}

// resolveMemberOrOwnedPortfolioIDs returns portfolios userID owns, plus
// projects- or community-kind portfolios listing userID as a member.
func resolveMemberOrOwnedPortfolioIDs(ctx context.Context, s store.Store, userID string) ([]string, error) {
	portfolios, err := s.PortfoliosWithUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve owned portfolios: %w", err)
	}

	var ids []string
	for i := range portfolios {
		p := &portfolios[i]
		switch {
		case p.OwnerID == userID:
			ids = append(ids, p.ID)
		case p.Kind == store.KindProjects || p.Kind == store.KindCommunity:
			if p.HasMember(userID) {
				ids = append(ids, p.ID)
			}
		}
	}
	return ids, nil
}

func memberIDsWithOwner(p *store.Portfolio) []string {
	seen := map[string]bool{p.OwnerID: true}
	ids := []string{p.OwnerID}
	for _, m := range p.Members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		ids = append(ids, m)
	}
	return ids
}
