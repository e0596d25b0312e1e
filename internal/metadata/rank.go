// file: internal/metadata/rank.go
// version: 1.0.0
// guid: 7c9e1a3b-5d7f-4c9e-a1b3-8d0f2a4c6e8b

package metadata

import (
	"slices"
	"strings"
)

type scoredHit struct {
	id    int
	score int
}

// authorScore counts how many author query parts appear as words of name.
func authorScore(name string, parts []string) int {
	words := strings.Fields(strings.ToLower(name))
	score := 0
	for _, p := range parts {
		if slices.Contains(words, p) {
			score++
		}
	}
	return score
}

// rankByAuthor orders search hits by their best author match. With an author given,
// hits whose authors match no part are dropped. Ties keep search order and ids are unique.
func rankByAuthor(hits []searchDocument, author string) []int {
	parts := strings.Fields(strings.ToLower(author))

	scored := make([]scoredHit, 0, len(hits))
	for _, h := range hits {
		best := 0
		if len(parts) > 0 {
			for _, name := range h.AuthorNames {
				best = max(best, authorScore(name, parts))
			}
			if best == 0 {
				continue
			}
		}
		scored = append(scored, scoredHit{id: int(h.ID), score: best})
	}
	slices.SortStableFunc(scored, func(a, b scoredHit) int { return b.score - a.score })

	seen := make(map[int]bool, len(scored))
	ids := make([]int, 0, len(scored))
	for _, s := range scored {
		if seen[s.id] {
			continue
		}
		seen[s.id] = true
		ids = append(ids, s.id)
	}
	return ids
}
