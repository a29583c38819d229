package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spaceRE = regexp.MustCompile(`\s+`)

// foldTransformer decomposes characters, drops combining marks and then any
// rune still outside ASCII, so "ángulo" folds to "angulo" and "90°" to "90".
var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// Normalize trims the text and collapses internal whitespace. Casing and
// accents are preserved; this is the shape user utterances are stored in.
func Normalize(text string) string {
	return spaceRE.ReplaceAllString(strings.TrimSpace(text), " ")
}

// Fold lowercases, strips diacritics and collapses whitespace. Catalog
// fields and match tokens are folded once and compared in this form.
func Fold(text string) string {
	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	return spaceRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(folded)), " ")
}

var (
	mmRE      = regexp.MustCompile(`(?i)(\d+)\s*mm\b`)
	inFracRE  = regexp.MustCompile(`(?i)(\d+\s*/\s*\d+)\s*(?:"|pulg|in)\b`)
	inWholeRE = regexp.MustCompile(`(?i)(\d+)"`)
	mRE       = regexp.MustCompile(`(?i)(\d+)\s*(?:m|metros)\b`)
	wRE       = regexp.MustCompile(`(?i)(\d{2,4})\s*w\b`)
)

// ExtractUnits scans free text for measurements. Keys are drawn from
// {mm, in, m, w}; a unit that does not appear is absent from the map.
// When the same unit is mentioned more than once the last mention wins,
// since it reflects the user's most recent statement.
func ExtractUnits(text string) map[string]string {
	out := map[string]string{}
	if m := mmRE.FindAllStringSubmatch(text, -1); len(m) > 0 {
		out["mm"] = m[len(m)-1][1]
	}
	if m := inFracRE.FindAllStringSubmatch(text, -1); len(m) > 0 {
		out["in"] = strings.ReplaceAll(m[len(m)-1][1], " ", "")
	} else if m := inWholeRE.FindAllStringSubmatch(text, -1); len(m) > 0 {
		out["in"] = m[len(m)-1][1]
	}
	if m := mRE.FindAllStringSubmatch(text, -1); len(m) > 0 {
		out["m"] = m[len(m)-1][1]
	}
	if m := wRE.FindAllStringSubmatch(text, -1); len(m) > 0 {
		out["w"] = m[len(m)-1][1]
	}
	return out
}

// Order matters: measurement shapes must win over the plain alphanumeric run.
var tokenRE = regexp.MustCompile(`#\d+|\d+/\d+|\d+\s*mm|\d+"|[a-z0-9]+`)

// TokenizeQuery splits folded text into generic tokens: alphanumeric runs
// plus embedded measurement suffixes (12mm, 1/2, 5", #8). No synonym
// expansion happens here or anywhere else. Tokens are deduplicated
// preserving first-seen order.
func TokenizeQuery(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, tok := range tokenRE.FindAllString(Fold(text), -1) {
		tok = strings.ReplaceAll(strings.TrimSpace(tok), " mm", "mm")
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
