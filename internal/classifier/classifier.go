// Package classifier implements the pure, deterministic domain classifier:
// a four-tier cascade, first match wins, no state and no side effects.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/autoissue/autoissue/pkg/models"
)

var titleTagPattern = regexp.MustCompile(`\[([A-Za-z ]+)\]`)

var wordBoundary = func(s string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s) + `\b`)
}

// Classify maps an issue record to a Classification by trying Tier 1
// (title tag), Tier 2 (labels), Tier 3 (path patterns), and Tier 4
// (keywords) in strict order. The first tier that produces a match wins;
// if none match, the result is {unknown, 0.0}.
func Classify(issue models.IssueRecord) models.Classification {
	if domain, reason, ok := classifyTitleTag(issue.Title); ok {
		return models.Classification{Domain: domain, Confidence: 1.00, Reasons: []string{reason}}
	}
	if domain, reasons, ok := classifyLabels(issue.Labels); ok {
		return models.Classification{Domain: domain, Confidence: 0.90, Reasons: reasons}
	}
	text := issue.Title + "\n" + issue.Body
	if domain, reasons, ok := classifyPaths(text); ok {
		return models.Classification{Domain: domain, Confidence: 0.70, Reasons: reasons}
	}
	if domain, reasons, ok := classifyKeywords(text); ok {
		return models.Classification{Domain: domain, Confidence: 0.50, Reasons: reasons}
	}
	return models.Classification{Domain: models.DomainUnknown, Confidence: 0.00, Reasons: nil}
}

// classifyTitleTag scans every bracketed tag in title left to right and
// returns the first one that is a recognized domain tag, so an
// unrecognized bracketed prefix (e.g. "[WIP] [Backend] ...") doesn't mask
// a later, recognized one.
func classifyTitleTag(title string) (models.Domain, string, bool) {
	for _, loc := range titleTagPattern.FindAllStringSubmatchIndex(title, -1) {
		tag := strings.ToLower(strings.TrimSpace(title[loc[2]:loc[3]]))
		if domain, ok := titleTags[tag]; ok {
			return domain, fmt.Sprintf("Title tag: %s", title[loc[0]:loc[1]]), true
		}
	}
	return "", "", false
}

// classifyLabels picks the domain with the most supporting labels among
// the recognized synonyms, breaking ties in canonical order.
func classifyLabels(labels []string) (models.Domain, []string, bool) {
	counts := make(map[models.Domain]int)
	supporting := make(map[models.Domain][]string)
	for _, label := range labels {
		lower := strings.ToLower(label)
		domain, ok := labelSynonyms[lower]
		if !ok {
			continue
		}
		counts[domain]++
		supporting[domain] = append(supporting[domain], lower)
	}
	winner, ok := pickWinner(counts)
	if !ok {
		return "", nil, false
	}
	reasons := make([]string, 0, len(supporting[winner]))
	for _, label := range supporting[winner] {
		reasons = append(reasons, fmt.Sprintf("Label: %s", label))
	}
	return winner, reasons, true
}

// classifyPaths scans text for recognized path-like tokens. Matching is
// case-sensitive, as specified.
func classifyPaths(text string) (models.Domain, []string, bool) {
	counts := make(map[models.Domain]int)
	hits := make(map[models.Domain]map[string]int)
	for _, p := range pathPatterns {
		n := strings.Count(text, p.token)
		if n == 0 {
			continue
		}
		counts[p.domain] += n
		if hits[p.domain] == nil {
			hits[p.domain] = make(map[string]int)
		}
		hits[p.domain][p.token] += n
	}
	winner, ok := pickWinner(counts)
	if !ok {
		return "", nil, false
	}
	return winner, formatHits("Path", hits[winner]), true
}

// classifyKeywords scans text for curated per-domain keywords, whole-word
// and case-insensitive.
func classifyKeywords(text string) (models.Domain, []string, bool) {
	counts := make(map[models.Domain]int)
	hits := make(map[models.Domain]map[string]int)
	for domain, keywords := range keywordVocabulary {
		for _, kw := range keywords {
			n := len(wordBoundary(kw).FindAllStringIndex(text, -1))
			if n == 0 {
				continue
			}
			counts[domain] += n
			if hits[domain] == nil {
				hits[domain] = make(map[string]int)
			}
			hits[domain][kw] += n
		}
	}
	winner, ok := pickWinner(counts)
	if !ok {
		return "", nil, false
	}
	return winner, formatHits("Keyword", hits[winner]), true
}

// formatHits renders a deterministic (canonical-order-independent but
// stable) list of "<label>: <token> ×<n>" reasons for a winning domain,
// iterating pathPatterns/keywordVocabulary declaration order rather than
// map iteration order.
func formatHits(label string, counts map[string]int) []string {
	if counts == nil {
		return nil
	}
	var order []string
	switch label {
	case "Path":
		for _, p := range pathPatterns {
			if _, ok := counts[p.token]; ok {
				order = append(order, p.token)
			}
		}
	case "Keyword":
		for _, keywords := range keywordVocabulary {
			for _, kw := range keywords {
				if _, ok := counts[kw]; ok {
					order = append(order, kw)
				}
			}
		}
	}
	reasons := make([]string, 0, len(order))
	seen := make(map[string]bool)
	for _, token := range order {
		if seen[token] {
			continue
		}
		seen[token] = true
		n := counts[token]
		if n == 1 {
			reasons = append(reasons, fmt.Sprintf("%s: %s", label, token))
		} else {
			reasons = append(reasons, fmt.Sprintf("%s: %s ×%d", label, token, n))
		}
	}
	return reasons
}

// pickWinner returns the domain with the highest count, breaking ties by
// canonical order (backend < frontend < database < infrastructure <
// security < testing < documentation).
func pickWinner(counts map[models.Domain]int) (models.Domain, bool) {
	best := -1
	var winner models.Domain
	for _, d := range models.CanonicalOrder() {
		if n, ok := counts[d]; ok && n > best {
			best = n
			winner = d
		}
	}
	return winner, best >= 0
}

// IsValidDomain reports whether s is a recognized domain.
func IsValidDomain(s models.Domain) bool {
	return models.IsValidDomain(s)
}

// AreDomainsCompatible reports whether two domains may run concurrently.
func AreDomainsCompatible(a, b models.Domain) bool {
	return models.AreDomainsCompatible(a, b)
}
