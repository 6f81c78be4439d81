package capture

import (
	"tiktok-scraper/pkg/types"
)

// Assembly is a pure function of buffer contents: given the same
// captured payloads it always produces the same output, whatever the
// network timing was. Page index order is the only scheduling signal
// kept.

// ListExtractor pulls the raw items out of one captured payload.
type ListExtractor func(body []byte) []types.ListItem

// CommentExtractor pulls the raw comments out of one captured payload.
type CommentExtractor func(body []byte) []*types.Comment

// AssembleList flattens every captured page's items in page order,
// then in-array order, deduplicating by item ID with the first
// occurrence winning. Ordinals reflect first-seen order.
func AssembleList(records []CapturedResponse, extract ListExtractor) []types.ListItem {
	var out []types.ListItem
	seen := make(map[string]struct{})

	for _, rec := range records {
		for _, item := range extract(rec.Body) {
			if item.ID == "" {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			item.Ordinal = len(out)
			out = append(out, item)
		}
	}

	return out
}

// AssembleTree builds the comment tree from all captured pages. Pass
// one collects and deduplicates comments by ID; pass two nests each
// reply under its parent, preserving capture order within a parent.
// Replies whose parent is absent from the batch come back as orphans
// so the caller can re-query those parents and re-assemble over the
// merged buffer.
func AssembleTree(records []CapturedResponse, extract CommentExtractor) (roots, orphans []*types.Comment) {
	var ordered []*types.Comment
	index := make(map[string]*types.Comment)

	for _, rec := range records {
		for _, c := range extract(rec.Body) {
			if c.ID == "" {
				continue
			}
			if _, dup := index[c.ID]; dup {
				continue
			}
			// Copy so repeated assembly over the same buffer never
			// sees children linked by a previous run.
			cc := *c
			cc.Replies = nil
			index[cc.ID] = &cc
			ordered = append(ordered, &cc)
		}
	}

	for _, c := range ordered {
		if c.ParentID == "" {
			roots = append(roots, c)
			continue
		}
		parent, ok := index[c.ParentID]
		if !ok || parent == c {
			orphans = append(orphans, c)
			continue
		}
		parent.Replies = append(parent.Replies, c)
	}

	return roots, orphans
}
