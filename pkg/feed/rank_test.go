package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atelier/internal/store"
	"atelier/pkg/novelty"
)

func noteAt(id string, author string, ts time.Time) store.Note {
	return store.Note{ID: id, AuthorID: author, CreatedAt: ts}
}

func TestRankUnseenFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tracker := novelty.New(0, 0)
	tracker.Insert("n2")
	tracker.Insert("n4")

	candidates := []store.Note{
		noteAt("n1", "a", base.Add(1*time.Minute)),
		noteAt("n2", "a", base.Add(4*time.Minute)),
		noteAt("n3", "a", base.Add(2*time.Minute)),
		noteAt("n4", "a", base.Add(3*time.Minute)),
	}

	ranked, _ := rank(candidates, tracker, 0, 10, 20)

	var ids []string
	for _, n := range ranked {
		ids = append(ids, n.ID)
	}
	// Unseen newest-first, then seen newest-first.
	assert.Equal(t, []string{"n3", "n1", "n2", "n4"}, ids)
}

func TestRankDeterministicOnTies(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	candidates := []store.Note{
		noteAt("nb", "a", ts),
		noteAt("na", "a", ts),
		noteAt("nc", "a", ts),
	}

	first, _ := rank(candidates, novelty.New(0, 0), 0, 10, 20)
	second, _ := rank([]store.Note{candidates[2], candidates[0], candidates[1]}, novelty.New(0, 0), 0, 10, 20)

	assert.Equal(t, first, second)
	assert.Equal(t, "na", first[0].ID)
}

func TestRankWindowing(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var candidates []store.Note
	for i := 0; i < 10; i++ {
		candidates = append(candidates, noteAt(fmt.Sprintf("n%02d", i), "a", base.Add(time.Duration(i)*time.Hour)))
	}

	page, hasMore := rank(candidates, novelty.New(0, 0), 2, 3, 10)
	assert.True(t, hasMore, "pre-truncation length reached fetch depth")
	assert.Len(t, page, 3)
	// Newest-first: n09..n00, offset 2 starts at n07.
	assert.Equal(t, "n07", page[0].ID)
	assert.Equal(t, "n05", page[2].ID)

	empty, _ := rank(candidates, novelty.New(0, 0), 50, 3, 10)
	assert.Empty(t, empty)
}

func TestRankHasMoreApproximation(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	candidates := []store.Note{
		noteAt("n1", "a", base),
		noteAt("n2", "a", base.Add(time.Hour)),
	}

	_, hasMore := rank(candidates, novelty.New(0, 0), 0, 1, 2)
	assert.True(t, hasMore)

	_, hasMore = rank(candidates, novelty.New(0, 0), 0, 10, 20)
	assert.False(t, hasMore)
}

func TestProvenancePrecedence(t *testing.T) {
	pc := &provenanceContext{
		userID:     "me",
		friends:    map[string]bool{"friend": true, "both": true},
		subscribed: map[string]bool{"p-sub": true},
		memberships: []CommunityMembership{
			{ID: "c1", Name: "First", MemberIDs: []string{"member", "both"}},
			{ID: "c2", Name: "Second", MemberIDs: []string{"member"}},
		},
	}

	own := store.Note{ID: "n1", AuthorID: "me", Portfolios: []string{"p-sub"}}
	assert.Nil(t, pc.label(&own), "own notes carry no label")

	// Friend wins over subscription and community membership.
	fromFriend := store.Note{ID: "n2", AuthorID: "both", Portfolios: []string{"p-sub"}}
	assert.Equal(t, &Provenance{Kind: SourceFriend}, pc.label(&fromFriend))

	subscribed := store.Note{ID: "n3", AuthorID: "member", Portfolios: []string{"p-sub"}}
	assert.Equal(t, &Provenance{Kind: SourceSubscribed}, pc.label(&subscribed))

	// First community in membership order wins when the author is in both.
	communal := store.Note{ID: "n4", AuthorID: "member"}
	assert.Equal(t, &Provenance{
		Kind:          SourceCommunity,
		CommunityID:   "c1",
		CommunityName: "First",
	}, pc.label(&communal))

	stranger := store.Note{ID: "n5", AuthorID: "nobody"}
	assert.Nil(t, pc.label(&stranger))
}
