package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"atelier/internal/store"
	"atelier/pkg/novelty"
)

// DefaultPageSize is used when a request does not specify a limit.
const DefaultPageSize = 20

// publicFeedLimit caps the unauthenticated feed. Public reads are never
// personalized or novelty-ranked.
const publicFeedLimit = 5

// Engine assembles, ranks, and pages note feeds.
type Engine struct {
	store    store.Store
	log      *slog.Logger
	capacity uint
	fpRate   float64
}

// NewEngine creates a feed engine. capacity and fpRate size the novelty
// trackers the engine creates; zero values select the novelty defaults.
func NewEngine(s store.Store, logger *slog.Logger, capacity uint, fpRate float64) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    s,
		log:      logger,
		capacity: capacity,
		fpRate:   fpRate,
	}
}

// GetFeed returns one ranked feed page for the request.
func (e *Engine) GetFeed(ctx context.Context, req Request) (*Page, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultPageSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.UserID == "" {
		return e.publicFeed(ctx)
	}

	// Headroom for dedup and novelty reordering before truncation.
	fetchDepth := 2 * (req.Offset + req.Limit)

	var (
		candidates []store.Note
		pc         *provenanceContext
		err        error
	)

	switch req.Scope {
	case ScopeFriends:
		candidates, err = e.friendCandidates(ctx, req.UserID, fetchDepth)
	case ScopeCommunity:
		if req.CommunityID == "" {
			return nil, fmt.Errorf("community scope without community id: %w", ErrInvalidRequest)
		}
		candidates, err = e.communityCandidates(ctx, req.CommunityID, fetchDepth)
	case ScopeAll:
		candidates, pc, err = e.allCandidates(ctx, req.UserID, fetchDepth)
	default:
		return nil, fmt.Errorf("unknown scope %q: %w", req.Scope, ErrInvalidRequest)
	}
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return emptyPage(), nil
	}

	tracker, err := e.loadOrCreateTracker(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	ranked, hasMore := rank(candidates, tracker, req.Offset, req.Limit, fetchDepth)

	page := emptyPage()
	page.HasMore = hasMore
	for i := range ranked {
		item := RankedNote{Note: ranked[i]}
		if pc != nil {
			item.Source = pc.label(&ranked[i])
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// MarkSeen inserts the given content ids into the user's novelty tracker
// and persists it. Safe to call repeatedly with overlapping sets, and
// designed to be invoked fire-and-forget after a feed render.
func (e *Engine) MarkSeen(ctx context.Context, userID string, contentIDs []string) error {
	if userID == "" || len(contentIDs) == 0 {
		return nil
	}

	tracker, err := e.loadOrCreateTracker(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range contentIDs {
		if id == "" {
			continue
		}
		tracker.Insert(id)
	}

	blob, err := tracker.Serialize()
	if err != nil {
		return fmt.Errorf("serialize tracker %s: %w", userID, err)
	}
	if err := e.store.SaveNoveltyRecord(ctx, userID, blob); err != nil {
		return err
	}
	return nil
}

// emptyPage returns a page with an initialized item slice, so an empty
// feed marshals as a JSON array rather than null.
func emptyPage() *Page {
	return &Page{Items: []RankedNote{}}
}

// publicFeed returns the most recent globally visible notes, unranked.
func (e *Engine) publicFeed(ctx context.Context) (*Page, error) {
	notes, err := e.store.RecentNotes(ctx, publicFeedLimit)
	if err != nil {
		return nil, err
	}
	page := emptyPage()
	for i := range notes {
		page.Items = append(page.Items, RankedNote{Note: notes[i]})
	}
	return page, nil
}

func (e *Engine) friendCandidates(ctx context.Context, userID string, fetchDepth int) ([]store.Note, error) {
	friendIDs, err := resolveFriendIDs(ctx, e.store, userID)
	if err != nil {
		return nil, err
	}
	// No friends means an empty page, not an unfiltered query.
	if len(friendIDs) == 0 {
		return nil, nil
	}
	return e.store.RecentNotesByAuthors(ctx, friendIDs, fetchDepth)
}

func (e *Engine) communityCandidates(ctx context.Context, communityID string, fetchDepth int) ([]store.Note, error) {
	memberIDs, err := resolveCommunityMemberIDs(ctx, e.store, communityID)
	if err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return nil, nil
	}
	return e.store.RecentNotesByAuthors(ctx, memberIDs, fetchDepth)
}

// allCandidates merges two query paths: notes authored by anyone in the
// friend/community-member union, and recent notes targeting a subscribed
// or owned portfolio. Every merged note is re-validated against the
// qualification predicate because the two paths filter differently and a
// query-construction bug must not silently admit an item.
func (e *Engine) allCandidates(ctx context.Context, userID string, fetchDepth int) ([]store.Note, *provenanceContext, error) {
	friendIDs, err := resolveFriendIDs(ctx, e.store, userID)
	if err != nil {
		return nil, nil, err
	}
	memberships, err := resolveAllCommunityMemberships(ctx, e.store, userID)
	if err != nil {
		return nil, nil, err
	}
	subscribedIDs, err := resolveSubscribedPortfolioIDs(ctx, e.store, userID)
	if err != nil {
		return nil, nil, err
	}
	ownedIDs, err := resolveMemberOrOwnedPortfolioIDs(ctx, e.store, userID)
	if err != nil {
		return nil, nil, err
	}

	authorSet := make(map[string]bool)
	var authorIDs []string
	addAuthor := func(id string) {
		if id != "" && !authorSet[id] {
			authorSet[id] = true
			authorIDs = append(authorIDs, id)
		}
	}
	for _, id := range friendIDs {
		addAuthor(id)
	}
	for _, m := range memberships {
		for _, id := range m.MemberIDs {
			addAuthor(id)
		}
	}

	portfolioSet := make(map[string]bool)
	for _, id := range subscribedIDs {
		portfolioSet[id] = true
	}
	for _, id := range ownedIDs {
		portfolioSet[id] = true
	}

	// No relationships at all: empty page, no queries.
	if len(authorIDs) == 0 && len(portfolioSet) == 0 {
		return nil, nil, nil
	}

	merged := make(map[string]store.Note)

	if len(authorIDs) > 0 {
		notes, err := e.store.RecentNotesByAuthors(ctx, authorIDs, fetchDepth)
		if err != nil {
			return nil, nil, err
		}
		for i := range notes {
			merged[notes[i].ID] = notes[i]
		}
	}

	if len(portfolioSet) > 0 {
		notes, err := e.store.RecentNotes(ctx, fetchDepth)
		if err != nil {
			return nil, nil, err
		}
		for i := range notes {
			if targetsAny(&notes[i], portfolioSet) {
				merged[notes[i].ID] = notes[i]
			}
		}
	}

	var candidates []store.Note
	for _, n := range merged {
		if authorSet[n.AuthorID] || targetsAny(&n, portfolioSet) {
			candidates = append(candidates, n)
		}
	}

	friendSet := make(map[string]bool, len(friendIDs))
	for _, id := range friendIDs {
		friendSet[id] = true
	}
	subscribedSet := make(map[string]bool, len(subscribedIDs))
	for _, id := range subscribedIDs {
		subscribedSet[id] = true
	}

	pc := &provenanceContext{
		userID:      userID,
		friends:     friendSet,
		subscribed:  subscribedSet,
		memberships: memberships,
	}
	return candidates, pc, nil
}

func targetsAny(n *store.Note, portfolioSet map[string]bool) bool {
	for _, pid := range n.Portfolios {
		if portfolioSet[pid] {
			return true
		}
	}
	return false
}

// loadOrCreateTracker loads the user's novelty tracker, creating a fresh
// one when none exists. A blob that fails to decode is replaced with a
// fresh tracker: losing novelty history degrades personalization but must
// never break the feed.
func (e *Engine) loadOrCreateTracker(ctx context.Context, userID string) (*novelty.Tracker, error) {
	rec, err := e.store.LoadNoveltyRecord(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return novelty.New(e.capacity, e.fpRate), nil
	}
	if err != nil {
		return nil, err
	}

	tracker, err := novelty.Deserialize(rec.Filter, e.capacity, e.fpRate)
	if err != nil {
		e.log.Warn("corrupt novelty filter, starting fresh",
			"user_id", userID, "error", err)
		return novelty.New(e.capacity, e.fpRate), nil
	}
	return tracker, nil
}
