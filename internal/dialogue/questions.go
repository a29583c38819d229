package dialogue

import (
	"regexp"
	"strings"

	"github.com/felemax/felia/internal/oracle"
	"github.com/felemax/felia/internal/textnorm"
)

var (
	optsRE       = regexp.MustCompile(`\(([^)]{0,300})\)`)
	noSeMidRE    = regexp.MustCompile(`(?i)\|\s*no\s*s[eé]\s*\|`)
	noSeLeadRE   = regexp.MustCompile(`(?i)\(\s*no\s*s[eé]\s*\|\s*`)
	noSeTrailRE  = regexp.MustCompile(`(?i)\s*\|\s*no\s*s[eé]\s*\)`)
	noSeOnlyRE   = regexp.MustCompile(`(?i)\(\s*no\s*s[eé]\s*\)`)
	emptyParenRE = regexp.MustCompile(`\s*\(\s*\)`)
	negationRE   = regexp.MustCompile(`(?i)\b(no necesito|no es|no son|otra cosa|otro|ninguno|ninguna)\b`)
)

// canonical "none of those" answers for the local classification shortcut
var negationAnswers = map[string]bool{
	"otro": true, "otra cosa": true, "ninguno": true, "ninguna": true,
}

// extractOptions parses the "(a | b | c)" clause out of a question.
func extractOptions(q string) []string {
	m := optsRE.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	var out []string
	for _, o := range strings.Split(m[1], "|") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// sanitizeQuestion strips the "no sé" option wherever it sits in the
// "(a | b | c)" clause, collapses parentheses left empty by that, and
// trims. A whitespace-only question becomes "".
func sanitizeQuestion(q string) string {
	q = noSeMidRE.ReplaceAllString(q, "|")
	q = noSeLeadRE.ReplaceAllString(q, "(")
	q = noSeTrailRE.ReplaceAllString(q, ")")
	q = noSeOnlyRE.ReplaceAllString(q, "")
	q = emptyParenRE.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

// isNegation reports whether the text rejects the current proposal.
func isNegation(text string) bool {
	return negationRE.MatchString(text)
}

// looksLikeAnswerToOption is the cheap local shortcut that skips the
// external classifier: the text matches one of the pending question's
// options (either direction of substring), or is a canonical negation.
func looksLikeAnswerToOption(userText, pendingQuestion string) bool {
	ut := textnorm.Fold(userText)
	if ut == "" {
		return false
	}
	options := extractOptions(pendingQuestion)
	if len(options) == 0 {
		return false
	}
	if negationAnswers[ut] {
		return true
	}
	for _, o := range options {
		of := textnorm.Fold(o)
		if of == "" {
			continue
		}
		if ut == of || strings.Contains(of, ut) || strings.Contains(ut, of) {
			return true
		}
	}
	return false
}

// factsScore gates premature search: one point for a known family, one for
// any extracted unit, plus one per slot answered so far in the session.
// Below 3 means "ask more".
func factsScore(plan oracle.Plan, answered map[string]string) int {
	score := 0
	if plan.Intent.Family != "" {
		score++
	}
	if len(plan.Units) > 0 {
		score++
	}
	return score + len(answered)
}
