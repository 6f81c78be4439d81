package capture

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiktok-scraper/pkg/types"
)

// itemsPage builds a captured payload holding the given item IDs.
func itemsPage(ids ...string) CapturedResponse {
	body, _ := json.Marshal(map[string][]string{"ids": ids})
	return CapturedResponse{Body: body}
}

func extractItems(body []byte) []types.ListItem {
	var page struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil
	}
	var items []types.ListItem
	for _, id := range page.IDs {
		items = append(items, types.ListItem{ID: id})
	}
	return items
}

func TestAssembleListDeduplicatesAcrossPages(t *testing.T) {
	// Overlapping pages, as TikTok serves them when the cursor drifts.
	records := []CapturedResponse{
		itemsPage("a", "b", "c"),
		itemsPage("b", "c", "d"),
		itemsPage("d", "e"),
	}

	items := AssembleList(records, extractItems)

	require.Len(t, items, 5)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
		assert.Equal(t, i, item.Ordinal)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestAssembleListSkipsEmptyIDs(t *testing.T) {
	records := []CapturedResponse{itemsPage("a", "", "b")}
	items := AssembleList(records, extractItems)
	require.Len(t, items, 2)
}

func TestAssembleListManyPages(t *testing.T) {
	// 10 pages of 3 with every page after the first repeating one item
	// from its predecessor: 39 extracted, 30 unique survive.
	var records []CapturedResponse
	for p := 0; p < 10; p++ {
		ids := []string{
			fmt.Sprintf("item-%d", p*3),
			fmt.Sprintf("item-%d", p*3+1),
			fmt.Sprintf("item-%d", p*3+2),
		}
		if p > 0 {
			ids = append(ids, fmt.Sprintf("item-%d", p*3-1))
		}
		records = append(records, itemsPage(ids...))
	}

	items := AssembleList(records, extractItems)
	assert.Len(t, items, 30)
	for i, item := range items {
		assert.Equal(t, i, item.Ordinal)
	}
}

func commentPage(comments ...*types.Comment) CapturedResponse {
	body, _ := json.Marshal(comments)
	return CapturedResponse{Body: body}
}

func extractComments(body []byte) []*types.Comment {
	var comments []*types.Comment
	if err := json.Unmarshal(body, &comments); err != nil {
		return nil
	}
	return comments
}

func TestAssembleTreeNestsReplies(t *testing.T) {
	records := []CapturedResponse{
		commentPage(
			&types.Comment{ID: "c1", Text: "first"},
			&types.Comment{ID: "c2", Text: "second"},
		),
		commentPage(
			&types.Comment{ID: "r1", ParentID: "c1", Text: "reply to first"},
			&types.Comment{ID: "r2", ParentID: "c1", Text: "another reply"},
			&types.Comment{ID: "r3", ParentID: "c2", Text: "reply to second"},
		),
	}

	roots, orphans := AssembleTree(records, extractComments)

	require.Len(t, roots, 2)
	assert.Empty(t, orphans)

	require.Len(t, roots[0].Replies, 2)
	assert.Equal(t, "r1", roots[0].Replies[0].ID)
	assert.Equal(t, "r2", roots[0].Replies[1].ID)
	require.Len(t, roots[1].Replies, 1)
	assert.Equal(t, "r3", roots[1].Replies[0].ID)
}

func TestAssembleTreeReportsOrphans(t *testing.T) {
	records := []CapturedResponse{
		commentPage(
			&types.Comment{ID: "c1"},
			&types.Comment{ID: "c2"},
			&types.Comment{ID: "c3"},
			&types.Comment{ID: "c4"},
		),
		commentPage(
			&types.Comment{ID: "r1", ParentID: "missing"},
		),
	}

	roots, orphans := AssembleTree(records, extractComments)
	assert.Len(t, roots, 4)
	require.Len(t, orphans, 1)
	assert.Equal(t, "r1", orphans[0].ID)

	// A follow-up capture round delivers the missing parent; the same
	// merged buffer now assembles cleanly.
	records = append(records, commentPage(&types.Comment{ID: "missing"}))
	roots, orphans = AssembleTree(records, extractComments)
	assert.Len(t, roots, 5)
	assert.Empty(t, orphans)
	last := roots[len(roots)-1]
	require.Len(t, last.Replies, 1)
	assert.Equal(t, "r1", last.Replies[0].ID)
}

func TestAssembleTreeDeduplicatesFirstWins(t *testing.T) {
	records := []CapturedResponse{
		commentPage(&types.Comment{ID: "c1", Text: "original"}),
		commentPage(&types.Comment{ID: "c1", Text: "replayed"}),
	}

	roots, orphans := AssembleTree(records, extractComments)
	require.Len(t, roots, 1)
	assert.Empty(t, orphans)
	assert.Equal(t, "original", roots[0].Text)
}

func TestAssembleTreeIsIdempotent(t *testing.T) {
	records := []CapturedResponse{
		commentPage(
			&types.Comment{ID: "c1"},
			&types.Comment{ID: "r1", ParentID: "c1"},
			&types.Comment{ID: "x1", ParentID: "gone"},
		),
	}

	first, firstOrphans := AssembleTree(records, extractComments)
	second, secondOrphans := AssembleTree(records, extractComments)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Reply lists must not accumulate across runs.
	require.Len(t, second, 1)
	assert.Len(t, second[0].Replies, 1)
	assert.Len(t, firstOrphans, 1)
	assert.Len(t, secondOrphans, 1)
}

func TestAssembleTreeSelfParentBecomesOrphan(t *testing.T) {
	records := []CapturedResponse{
		commentPage(&types.Comment{ID: "c1", ParentID: "c1"}),
	}

	roots, orphans := AssembleTree(records, extractComments)
	assert.Empty(t, roots)
	require.Len(t, orphans, 1)
	assert.Empty(t, orphans[0].Replies)
}
