package dropdown

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

type scored struct {
	opt   Option
	score int
	dist  int
	index int
}

// rank narrows options to those matching query and orders them by fzf
// score. Equal scores fall back to edit distance between the label and
// the query, then to the original order.
func rank(options []Option, query string, slab *util.Slab) []Option {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]Option(nil), options...)
	}
	pattern := []rune(query)
	hits := make([]scored, 0, len(options))
	for idx, opt := range options {
		text := strings.ToLower(opt.searchText())
		chars := util.ToChars([]byte(text))
		res, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
		if res.Start < 0 || res.Score <= 0 {
			continue
		}
		hits = append(hits, scored{
			opt:   opt,
			score: res.Score,
			dist:  levenshtein.ComputeDistance(strings.ToLower(opt.Label), query),
			index: idx,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].index < hits[j].index
	})
	out := make([]Option, len(hits))
	for i, h := range hits {
		out[i] = h.opt
	}
	return out
}
