package canonical

import (
	"regexp"
	"strings"
	"unicode"
)

// Address is a street address split into its building part and its unit part.
type Address struct {
	Base string `json:"base"`
	Unit string `json:"unit,omitempty"`
}

var unitMarkerPattern = regexp.MustCompile(
	`[,\s]+(?:(?:UNIT|APT|APARTMENT|STE|SUITE|FL|FLOOR|RM|ROOM|BLDG|BUILDING|DEPT|OFFICE)\b|#)`,
)

var houseNumberPattern = regexp.MustCompile(`^\d+[A-Z]?(-\d+[A-Z]?)?$`)

var streetSuffixExpansions = map[string]string{
	"ST":   "STREET",
	"AVE":  "AVENUE",
	"AV":   "AVENUE",
	"RD":   "ROAD",
	"CT":   "COURT",
	"BLVD": "BOULEVARD",
	"LN":   "LANE",
	"DR":   "DRIVE",
	"WAY":  "WAY",
	"PL":   "PLACE",
	"TER":  "TERRACE",
	"TERR": "TERRACE",
	"CIR":  "CIRCLE",
	"HWY":  "HIGHWAY",
	"PKWY": "PARKWAY",
	"SQ":   "SQUARE",
}

var streetSuffixWords = func() map[string]struct{} {
	words := make(map[string]struct{}, len(streetSuffixExpansions)*2)
	for abbr, full := range streetSuffixExpansions {
		words[abbr] = struct{}{}
		words[full] = struct{}{}
	}
	return words
}()

// A trailing number after one of these is a route number, not a unit.
var routeDesignators = map[string]struct{}{
	"ROUTE":   {},
	"RTE":     {},
	"RT":      {},
	"HWY":     {},
	"HIGHWAY": {},
}

// ParseAddress splits raw into base and unit.
//
// An explicit marker (UNIT, APT, STE, SUITE, FL, RM, BLDG, DEPT, OFFICE, their
// long forms, or a bare '#') preceded by a comma or whitespace starts the unit.
// Without a marker, a short trailing token containing a digit that is not a
// street suffix is taken as an implicit unit.
func ParseAddress(raw string) Address {
	s := collapseSpaces(strings.ToUpper(foldDiacritics(raw)))
	if s == "" {
		return Address{}
	}

	for _, m := range unitMarkerPattern.FindAllStringIndex(s, -1) {
		base := strings.TrimRight(s[:m[0]], ", ")
		if len(strings.Fields(base)) < 2 {
			continue
		}
		return Address{
			Base: base,
			Unit: strings.TrimLeft(s[m[0]:], ", "),
		}
	}

	tokens := strings.Fields(s)
	if len(tokens) >= 3 {
		last := strings.Trim(tokens[len(tokens)-1], ".,")
		prev := strings.Trim(tokens[len(tokens)-2], ".,")
		_, isSuffix := streetSuffixWords[last]
		_, isRoute := routeDesignators[prev]
		if last != "" && len(last) < 6 && containsDigit(last) && !isSuffix && !isRoute {
			return Address{
				Base: strings.TrimRight(strings.Join(tokens[:len(tokens)-1], " "), ", "),
				Unit: last,
			}
		}
	}

	return Address{Base: strings.TrimRight(s, ", ")}
}

// StreetKey normalizes an address base for grouping: punctuation other than
// hyphens is removed, whitespace collapsed and an abbreviated street suffix in
// the final position expanded (ST becomes STREET, AVE becomes AVENUE, ...).
func StreetKey(base string) string {
	s := strings.ToUpper(foldDiacritics(base))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == ',':
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return ""
	}
	if full, ok := streetSuffixExpansions[tokens[len(tokens)-1]]; ok {
		tokens[len(tokens)-1] = full
	}
	return strings.Join(tokens, " ")
}

// GroupingKey returns "<street key>|<CITY>" for the building an address
// belongs to, or "" when the address is empty.
func GroupingKey(address, city string) string {
	key := StreetKey(ParseAddress(address).Base)
	if key == "" {
		return ""
	}
	return key + "|" + strings.ToUpper(strings.TrimSpace(city))
}

// IsGroupable reports whether an address base is specific enough to be merged
// with others: it needs a leading house number, a street name after it and at
// least three characters.
func IsGroupable(base string) bool {
	key := StreetKey(base)
	if len(key) < 3 {
		return false
	}
	tokens := strings.Fields(key)
	if len(tokens) < 2 {
		return false
	}
	return houseNumberPattern.MatchString(tokens[0])
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
