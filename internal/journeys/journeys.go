// Package journeys builds a weighted page-transition graph from in-session
// event order.
//
// Each session with two or more page views contributes one edge per
// consecutive pair of normalized page paths; identical (from, to) pairs are
// summed. Entry and exit page tables and the most frequent full session
// sequences are derived alongside.
package journeys

import (
	"net/url"
	"sort"
	"strings"

	"vantage/internal/sessions"
)

// Defaults for presentation caps. Aggregation always considers every
// transition before truncating for rendering.
const (
	DefaultTopPathsLimit    = 50
	DefaultMaxHops          = 10
	DefaultMaxRenderedEdges = 15
)

// Edge is an aggregated count of same-session transitions between two
// normalized page paths.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int64  `json:"count"`
}

// PageCount is a frequency-table entry for entry/exit pages.
type PageCount struct {
	Page  string `json:"page"`
	Count int64  `json:"count"`
}

// PathCount is one full session page sequence and how often it occurred.
type PathCount struct {
	Path  []string `json:"path"`
	Count int64    `json:"count"`
}

// Stats summarizes the graph inputs.
type Stats struct {
	Sessions         int64 `json:"sessions"`
	PageViews        int64 `json:"page_views"`
	TotalTransitions int64 `json:"total_transitions"`
	UniquePages      int64 `json:"unique_pages"`
}

// Params configures graph construction. Zero values take the defaults.
type Params struct {
	MaxHops           int
	TopPathsLimit     int
	MaxRenderedEdges  int
	CollapseSelfLoops bool
}

// Graph is the derived navigation-flow structure.
type Graph struct {
	Transitions []Edge      `json:"transitions"`
	EntryPages  []PageCount `json:"entry_pages"`
	ExitPages   []PageCount `json:"exit_pages"`
	TopPaths    []PathCount `json:"top_paths"`
	Stats       Stats       `json:"stats"`
}

// Build constructs the journey graph for a set of sessions. Only page-view
// events participate; sessions without page views are ignored.
func Build(sess []sessions.Session, params Params) Graph {
	if params.MaxHops <= 0 {
		params.MaxHops = DefaultMaxHops
	}
	if params.TopPathsLimit <= 0 {
		params.TopPathsLimit = DefaultTopPathsLimit
	}
	if params.MaxRenderedEdges <= 0 {
		params.MaxRenderedEdges = DefaultMaxRenderedEdges
	}

	edges := make(map[[2]string]int64)
	entries := make(map[string]int64)
	exits := make(map[string]int64)
	paths := make(map[string]int64)
	pages := make(map[string]bool)
	var stats Stats

	for _, s := range sess {
		views := s.PageViews()
		if len(views) == 0 {
			continue
		}

		seq := make([]string, 0, len(views))
		for _, e := range views {
			seq = append(seq, NormalizePath(e.URL))
		}
		if params.CollapseSelfLoops {
			seq = collapseRuns(seq)
		}

		stats.Sessions++
		stats.PageViews += int64(len(seq))
		entries[seq[0]]++
		exits[seq[len(seq)-1]]++
		for _, page := range seq {
			pages[page] = true
		}

		for i := 0; i+1 < len(seq); i++ {
			edges[[2]string{seq[i], seq[i+1]}]++
			stats.TotalTransitions++
		}

		// Session sequences are truncated beyond the hop cap to bound the
		// path table; edges above are aggregated from the full sequence.
		truncated := seq
		if len(truncated) > params.MaxHops {
			truncated = truncated[:params.MaxHops]
		}
		paths[strings.Join(truncated, "\x00")]++
	}

	stats.UniquePages = int64(len(pages))

	return Graph{
		Transitions: topEdges(edges, params.MaxRenderedEdges),
		EntryPages:  sortedPageCounts(entries),
		ExitPages:   sortedPageCounts(exits),
		TopPaths:    topPaths(paths, params.TopPathsLimit),
		Stats:       stats,
	}
}

// NormalizePath reduces a URL to a path-only string with the query and
// fragment stripped. A bare path is treated as already normalized. Malformed
// URLs never fail: the raw string is used as the path.
func NormalizePath(raw string) string {
	if raw == "" {
		return "/"
	}

	if strings.HasPrefix(raw, "/") {
		if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
			raw = raw[:idx]
		}
		if raw == "" {
			return "/"
		}
		return raw
	}

	candidate := raw
	hadScheme := strings.Contains(candidate, "://")
	if !hadScheme {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return raw
	}
	// A schemeless value the parser swallowed whole as a host ("about",
	// "example.com") is not a resolvable URL; keep it as-is rather than
	// collapsing it to the root page.
	if !hadScheme && parsed.Host == raw {
		return raw
	}
	if parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

// collapseRuns removes back-to-back repeats of the same page (e.g. reloads)
// from a sequence.
func collapseRuns(seq []string) []string {
	out := make([]string, 1, len(seq))
	out[0] = seq[0]
	for _, page := range seq[1:] {
		if page != out[len(out)-1] {
			out = append(out, page)
		}
	}
	return out
}

func topEdges(edges map[[2]string]int64, limit int) []Edge {
	result := make([]Edge, 0, len(edges))
	for pair, count := range edges {
		result = append(result, Edge{From: pair[0], To: pair[1], Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if result[i].From != result[j].From {
			return result[i].From < result[j].From
		}
		return result[i].To < result[j].To
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

func sortedPageCounts(table map[string]int64) []PageCount {
	result := make([]PageCount, 0, len(table))
	for page, count := range table {
		result = append(result, PageCount{Page: page, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Page < result[j].Page
	})
	return result
}

func topPaths(paths map[string]int64, limit int) []PathCount {
	result := make([]PathCount, 0, len(paths))
	for key, count := range paths {
		result = append(result, PathCount{Path: strings.Split(key, "\x00"), Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return strings.Join(result[i].Path, "\x00") < strings.Join(result[j].Path, "\x00")
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
