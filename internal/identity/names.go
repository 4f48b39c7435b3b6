// Package identity canonicalizes facility names, states, counties and CCNs
// into comparable keys. Every function is pure and never fails.
package identity

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// aggressivePunctRe strips every punctuation mark the two source tables
	// disagree on, commas included.
	aggressivePunctRe = regexp.MustCompile(`[,.'"]`)

	// softPunctRe strips the same marks but keeps commas.
	softPunctRe = regexp.MustCompile(`[.'"]`)
)

// Strategy names one name normalization rule.
type Strategy string

const (
	Aggressive      Strategy = "aggressive"
	CommaPreserving Strategy = "comma_preserving"
	Minimal         Strategy = "minimal"
)

// Strategies lists the name normalization rules in matching priority order,
// most aggressive first.
var Strategies = []Strategy{Aggressive, CommaPreserving, Minimal}

// NormalizeName applies one normalization strategy to a raw facility name.
// All strategies upper-case and collapse whitespace; hyphens become spaces
// under the punctuation-stripping strategies.
func NormalizeName(raw string, s Strategy) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case Aggressive:
		name = aggressivePunctRe.ReplaceAllString(name, "")
		name = strings.ReplaceAll(name, "-", " ")
	case CommaPreserving:
		name = softPunctRe.ReplaceAllString(name, "")
		name = strings.ReplaceAll(name, "-", " ")
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
}

// NameVariants returns the distinct normalized forms of raw in strategy
// priority order. Blank input yields nil.
func NameVariants(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	variants := make([]string, 0, len(Strategies))
	for _, s := range Strategies {
		v := NormalizeName(raw, s)
		if v == "" || contains(variants, v) {
			continue
		}
		variants = append(variants, v)
	}
	return variants
}

// NormalizeCCN strips whitespace and leading zeros and left-pads to six
// digits, so "15009", "015009" and " 015009 " compare equal. Blank and
// placeholder values yield "".
func NormalizeCCN(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return ""
	}
	s = strings.TrimSuffix(s, ".0")
	s = strings.TrimLeft(s, "0")
	if len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return s
}

// NormalizeCounty case-folds a county name and drops a trailing "county" or
// "parish" word, so "Orleans Parish" and "orleans" compare equal.
func NormalizeCounty(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "nan" {
		return ""
	}
	c = strings.ReplaceAll(c, " county", "")
	c = strings.ReplaceAll(c, " parish", "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(c, " "))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
