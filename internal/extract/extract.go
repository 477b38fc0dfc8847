// Package extract pulls event identifiers out of rendered listing pages.
//
// Listing pages link to event detail pages under paths of the form
// /e/<slug>-<numeric-id>. Only the trailing numeric id matters; everything
// else on the page (nav links, ads, tracking redirects) is ignored.
package extract

import (
	"regexp"
	"strings"
)

var eventLinkRe = regexp.MustCompile(`/e/[^/?#]*-([0-9]+)`)

// EventIDs returns the deduplicated event identifiers found in hrefs,
// preserving first-seen order. Malformed or unrelated links are skipped,
// never an error.
func EventIDs(hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		id := EventID(h)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// EventID extracts the identifier from a single hyperlink target, or ""
// when the link does not point at an event detail page.
func EventID(href string) string {
	h := strings.TrimSpace(href)
	if h == "" {
		return ""
	}
	m := eventLinkRe.FindStringSubmatch(h)
	if m == nil {
		return ""
	}
	return m[1]
}
