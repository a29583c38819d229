// Package oracle defines the decision-oracle contracts the dialogue engine
// depends on: a turn classifier and a next-step planner. Production talks to
// an LLM; tests use deterministic doubles. The engine never sees an oracle
// error — every failure collapses into a conservative fallback.
package oracle

import (
	"context"

	"github.com/felemax/felia/internal/textnorm"
)

// Plan actions.
const (
	ActionAsk    = "ask"
	ActionSearch = "search"
)

// Classification kinds.
const (
	KindQA            = "qa"
	KindAnswerOption  = "answer_option"
	KindStatementNeed = "statement_need"
	KindSmalltalk     = "smalltalk"
	KindOther         = "other"
)

// Intent is the coarse product family the conversation is converging on.
type Intent struct {
	Family           string  `json:"family"`
	FamilyConfidence float64 `json:"family_confidence"`
}

// Plan is the planner's output for one turn.
type Plan struct {
	Action         string            `json:"action"`
	Question       string            `json:"question"`
	Intent         Intent            `json:"intent"`
	ReadyToSearch  bool              `json:"ready_to_search"`
	SlotsRequired  []string          `json:"slots_required"`
	AnsweredSlots  map[string]string `json:"answered_slots"`
	VariantsGoal   int               `json:"variants_goal"`
	QueryVariants  [][]string        `json:"query_variants"`
	Must           []string          `json:"must"`
	Not            []string          `json:"not"`
	Units          map[string]string `json:"units"`
	Hypotheses     []string          `json:"hypotheses"`
	Disambiguation string            `json:"disambiguation"`
}

// Classification is the turn classifier's output.
type Classification struct {
	Kind       string  `json:"kind"`
	IsQA       bool    `json:"is_qa"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// TurnContext is what the classifier sees of the session.
type TurnContext struct {
	Greeted         bool     `json:"greeted"`
	PendingQuestion string   `json:"pending_question"`
	AskedQuestions  []string `json:"asked_questions"`
	NeedHistory     []string `json:"need_history"`
}

// PlanContext is the full session context the planner sees.
type PlanContext struct {
	Greeted             bool              `json:"greeted"`
	AskedQuestions      []string          `json:"asked_questions"`
	AnsweredSlots       map[string]string `json:"answered_slots"`
	Rounds              int               `json:"rounds"`
	NeedHistory         []string          `json:"need_history"`
	ForceMore           bool              `json:"force_more"`
	PendingQuestion     string            `json:"pending_question"`
	RejectedFamilies    []string          `json:"rejected_families"`
	RejectedOptions     []string          `json:"rejected_options"`
	LastQuestionOptions []string          `json:"last_question_options"`
}

// Oracle is the decision interface. Both operations are pure
// request/response; the oracle holds no state.
type Oracle interface {
	Classify(ctx context.Context, userText string, tc TurnContext) (Classification, error)
	Plan(ctx context.Context, userText string, pc PlanContext) (Plan, error)
}

// FallbackPlan is the deterministic substitute for a failed planner call:
// always ask, never generic, units extracted locally.
func FallbackPlan(userText string, askedQuestions []string) Plan {
	q := "Contame el dato clave que falta (por ejemplo, medida o material)."
	for _, asked := range askedQuestions {
		if asked == q {
			q = "Dame un dato concreto (medida en mm, material, ángulo, presión/clase, etc.)."
			break
		}
	}
	return Plan{
		Action:        ActionAsk,
		Question:      q,
		VariantsGoal:  25,
		AnsweredSlots: map[string]string{},
		Units:         textnorm.ExtractUnits(userText),
	}
}

// FallbackClassification is the substitute for a failed classifier call.
func FallbackClassification() Classification {
	return Classification{Kind: KindOther}
}

// Normalize fills defaults and clamps fields of a plan straight off the
// wire: only the goals 25/30/40 are valid, blank strings are dropped, and
// malformed variant rows disappear.
func (p *Plan) Normalize(userText string) {
	if p.Action != ActionSearch {
		p.Action = ActionAsk
	}
	p.SlotsRequired = keepStrings(p.SlotsRequired)
	p.Must = keepStrings(p.Must)
	p.Not = keepStrings(p.Not)
	p.Hypotheses = keepStrings(p.Hypotheses)
	if p.AnsweredSlots == nil {
		p.AnsweredSlots = map[string]string{}
	}
	if len(p.Units) == 0 {
		p.Units = textnorm.ExtractUnits(userText)
	}
	var variants [][]string
	for _, row := range p.QueryVariants {
		if toks := keepStrings(row); len(toks) > 0 {
			variants = append(variants, toks)
		}
	}
	p.QueryVariants = variants
	switch {
	case p.VariantsGoal >= 40:
		p.VariantsGoal = 40
	case p.VariantsGoal >= 30:
		p.VariantsGoal = 30
	default:
		p.VariantsGoal = 25
	}
}

func keepStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if s = textnorm.Normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
