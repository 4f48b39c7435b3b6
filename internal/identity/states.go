package identity

import "strings"

// stateNames maps USPS codes to full state names (50 states plus DC).
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "DE": "Delaware", "FL": "Florida", "GA": "Georgia",
	"HI": "Hawaii", "ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi", "MO": "Missouri",
	"MT": "Montana", "NE": "Nebraska", "NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey",
	"NM": "New Mexico", "NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont",
	"VA": "Virginia", "WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
	"DC": "District of Columbia",
}

// stateCodes maps lower-cased full names back to USPS codes.
var stateCodes = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for code, name := range stateNames {
		m[strings.ToLower(name)] = code
	}
	return m
}()

// StateAliases returns every representation of a state token that may appear
// in the source tables: the input itself, its upper and Title casing, and,
// when the token is a known code or full name, the paired form in the same
// three casings. Blank input yields an empty set.
func StateAliases(state string) map[string]struct{} {
	s := strings.TrimSpace(state)
	aliases := make(map[string]struct{})
	if s == "" {
		return aliases
	}

	up := strings.ToUpper(s)
	title := titleCase(s)
	add := func(v string) {
		aliases[v] = struct{}{}
		aliases[strings.ToUpper(v)] = struct{}{}
		aliases[titleCase(v)] = struct{}{}
	}
	aliases[s] = struct{}{}
	aliases[up] = struct{}{}
	aliases[title] = struct{}{}

	if code, ok := stateCodes[strings.ToLower(s)]; ok {
		add(code)
	}
	if name, ok := stateNames[up]; ok {
		add(name)
	}
	return aliases
}

// InState reports whether candidate is one of the aliases of state.
func InState(aliases map[string]struct{}, candidate string) bool {
	_, ok := aliases[strings.TrimSpace(candidate)]
	return ok
}

// NormalizeState returns the USPS code for a known code or full name in any
// casing, and the upper-cased trimmed input otherwise.
func NormalizeState(state string) string {
	s := strings.TrimSpace(state)
	up := strings.ToUpper(s)
	if _, ok := stateNames[up]; ok {
		return up
	}
	if code, ok := stateCodes[strings.ToLower(s)]; ok {
		return code
	}
	return up
}

// titleCase upper-cases the first letter of every word and lower-cases the
// rest, treating any non-letter as a word boundary.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	boundary := true
	for _, r := range s {
		isLetter := ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
		switch {
		case isLetter && boundary:
			b.WriteString(strings.ToUpper(string(r)))
		case isLetter:
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteRune(r)
		}
		boundary = !isLetter
	}
	return b.String()
}
