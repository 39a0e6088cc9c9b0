package canonical

import (
	"regexp"
	"sort"
	"strings"
)

var personNameSuffixes = map[string]struct{}{
	"JR":  {},
	"SR":  {},
	"II":  {},
	"III": {},
	"IV":  {},
	"ESQ": {},
	"MD":  {},
	"PHD": {},
	"DDS": {},
}

var namePunctuation = strings.NewReplacer(
	"'", "",
	"\"", "",
	"`", "",
	".", "",
	"‘", "",
	"’", "",
	"“", "",
	"”", "",
)

// corporateSuffixPattern decides whether a name belongs to a legal entity
// rather than a natural person. Ingestion and querying both classify with it.
var corporateSuffixPattern = regexp.MustCompile(
	`(?i)\b(LLC|L\.L\.C|INC|INCORPORATED|CORP|CORPORATION|COMPANY|LTD|LIMITED|LP|LLP|PLLC|` +
		`GROUP|HOLDINGS?|TRUST|TRUSTEES?|PARTNERS|PARTNERSHIP|ASSOCIATES|ASSOCIATION|` +
		`PROPERTIES|REALTY|MANAGEMENT|ENTERPRISES|INVESTMENTS?|DEVELOPMENT|FUND|FOUNDATION|ESTATE|BANK)\b`,
)

// IsCorporateName reports whether name carries a corporate suffix such as
// LLC, INC, CORP, LTD, GROUP, HOLDINGS or TRUST.
func IsCorporateName(name string) bool {
	return corporateSuffixPattern.MatchString(name)
}

// PersonName returns the comparison key of a person name.
//
// The key is uppercase, free of quotes, periods and backticks, stripped of
// trailing suffixes (JR, SR, II, III, IV, ESQ, MD, PHD, DDS), rewritten from
// "Last, First" to "First Last" and finally made of its tokens in sorted
// order. Sorting makes "John Smith" and "Smith John" collide, which is
// accepted for matching.
//
// Example:
//
//	canonical.PersonName("Gurevitch, Menachem Jr.") // "GUREVITCH MENACHEM"
//	canonical.PersonName("Menachem Gurevitch")      // "GUREVITCH MENACHEM"
func PersonName(raw string) string {
	s := strings.ToUpper(foldDiacritics(raw))
	s = namePunctuation.Replace(s)
	s = collapseSpaces(s)
	s = stripNameSuffixes(s)

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		last := strings.TrimSpace(parts[0])
		first := ""
		if len(parts) > 1 {
			first = strings.TrimSpace(parts[1])
		}
		s = strings.TrimSpace(first + " " + last)
	}

	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func stripNameSuffixes(s string) string {
	tokens := strings.Fields(s)
	for len(tokens) > 1 {
		last := strings.Trim(tokens[len(tokens)-1], ",")
		if _, ok := personNameSuffixes[last]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
