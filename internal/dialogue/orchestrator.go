// Package dialogue implements the turn-handling state machine: classify the
// turn, decide ask-vs-search, never repeat a question, and hand a result
// listing back only when the evidence supports it.
package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/felemax/felia/internal/catalog"
	"github.com/felemax/felia/internal/enrich"
	"github.com/felemax/felia/internal/oracle"
	"github.com/felemax/felia/internal/retrieval"
	"github.com/felemax/felia/internal/session"
	"github.com/felemax/felia/internal/textnorm"
)

const (
	greeting      = "Hola, soy Felia, asistente de Felemax. ¿En qué puedo ayudarte hoy?"
	closingPrompt = "¿Te lo reservo/te lo envío o preferís retirar por sucursal?"
	qaNudge       = "¿Podés contarme un poco más del uso?"

	candidateCap  = 200
	historyWindow = 4
)

// Config tunes presentation and caps.
type Config struct {
	ShowPrices bool
	Currency   string
}

// Reply is one turn's outcome. Trace is diagnostic metadata only; clients
// never need it for correctness.
type Reply struct {
	Text  string
	Trace map[string]interface{}
}

// Orchestrator drives one session through the ask/search loop.
type Orchestrator struct {
	oracle   oracle.Oracle
	catalog  catalog.Searcher
	hydrator enrich.Hydrator
	sessions *session.Store
	cfg      Config
	logger   *log.Logger
}

func New(o oracle.Oracle, cat catalog.Searcher, h enrich.Hydrator, sessions *session.Store, cfg Config, logger *log.Logger) *Orchestrator {
	if h == nil {
		h = enrich.Noop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{oracle: o, catalog: cat, hydrator: h, sessions: sessions, cfg: cfg, logger: logger}
}

// Handle processes one inbound message. The session lock is held for the
// whole turn: concurrent messages on the same session serialize here.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, text string) Reply {
	st, _ := o.sessions.Get(sessionID)
	st.Lock()
	defer st.Unlock()

	turnsTotal.Inc()
	userText := textnorm.Normalize(text)
	st.PushNeed(userText)

	if !st.Greeted {
		st.Greeted = true
		return Reply{Text: greeting, Trace: map[string]interface{}{"note": "greeting_only"}}
	}

	if st.PendingQuestion != "" && isNegation(userText) {
		st.RejectOptions(extractOptions(st.PendingQuestion))
	}

	cls := o.classify(ctx, userText, st)
	if cls.Kind == oracle.KindQA {
		reply := cls.Answer
		switch {
		case st.PendingQuestion != "" && reply != "":
			reply = reply + "\n\n" + st.PendingQuestion
		case st.PendingQuestion != "":
			reply = st.PendingQuestion
		case reply == "":
			reply = qaNudge
		}
		return Reply{Text: reply, Trace: map[string]interface{}{"mode": "qa", "qa_confidence": cls.Confidence}}
	}

	plan, err := o.oracle.Plan(ctx, userText, planContext(st))
	if err != nil {
		oracleFailures.WithLabelValues("plan").Inc()
		o.logger.Printf("planner unavailable, using fallback: %v", err)
		plan = oracle.FallbackPlan(userText, st.AskedQuestions)
	}
	st.MergeSlots(plan.AnsweredSlots)

	if plan.Action == oracle.ActionAsk {
		q := sanitizeQuestion(firstNonEmpty(plan.Question, plan.Disambiguation))
		if q == "" || st.HasAsked(q) {
			q = o.forceConcreteQuestion(ctx, userText, st, plan)
		}
		st.RecordAsked(q, extractOptions(q))
		return Reply{Text: q, Trace: map[string]interface{}{
			"mode": "ask", "intent": plan.Intent, "hypotheses": plan.Hypotheses,
		}}
	}

	if factsScore(plan, st.AnsweredSlots) < 3 {
		q := o.forceConcreteQuestion(ctx, userText, st, plan)
		st.RecordAsked(q, extractOptions(q))
		return Reply{Text: q, Trace: map[string]interface{}{"mode": "ask_forced", "intent": plan.Intent}}
	}

	return o.search(ctx, userText, st, plan)
}

// search runs the retrieval path: variants, candidate accumulation,
// enrichment, ranking, and either a listing (terminal) or a clarifying
// question (non-terminal).
func (o *Orchestrator) search(ctx context.Context, userText string, st *session.State, plan oracle.Plan) Reply {
	searchesTotal.Inc()

	family := plan.Intent.Family
	var variants []catalog.Query
	for _, toks := range plan.QueryVariants {
		variants = append(variants, catalog.Query{Tokens: toks, Not: plan.Not, Family: family})
	}
	if len(variants) == 0 {
		variants = retrieval.BuildVariants(retrieval.Plan{
			Q:      recentNeed(st, userText),
			Must:   plan.Must,
			Not:    plan.Not,
			Units:  plan.Units,
			Family: family,
		}, plan.VariantsGoal)
	}

	var candidates []catalog.Entry
	for _, vq := range variants {
		candidates = append(candidates, o.catalog.Search(vq)...)
		if len(candidates) >= candidateCap {
			candidates = candidates[:candidateCap]
			break
		}
	}

	if len(candidates) == 0 {
		q := o.forceConcreteQuestion(ctx, userText, st, plan)
		st.RecordAsked(q, extractOptions(q))
		return Reply{Text: q, Trace: map[string]interface{}{"mode": "no_results_ask", "intent": plan.Intent}}
	}

	hydrated := o.hydrator.Hydrate(ctx, candidates)
	top := retrieval.RankAndCut(hydrated, plan.Must, plan.Not)
	if len(top) == 0 {
		q := o.forceConcreteQuestion(ctx, userText, st, plan)
		st.RecordAsked(q, extractOptions(q))
		return Reply{Text: q, Trace: map[string]interface{}{"mode": "ambiguous_ask", "intent": plan.Intent}}
	}

	msg := formatListing(top, o.cfg.ShowPrices, o.cfg.Currency) + "\n" + closingPrompt
	st.ResetNeed()
	resultTurns.Inc()
	return Reply{Text: msg, Trace: map[string]interface{}{
		"mode": "search_ok", "intent": plan.Intent, "variants_used": len(variants),
	}}
}

// classify runs the local answer-to-option shortcut first; the external
// classifier only gets called when the shortcut does not fire, and its
// failure degrades to "other" (which routes into the planner).
func (o *Orchestrator) classify(ctx context.Context, userText string, st *session.State) oracle.Classification {
	if looksLikeAnswerToOption(userText, st.PendingQuestion) {
		return oracle.Classification{Kind: oracle.KindAnswerOption, Confidence: 0.9}
	}
	cls, err := o.oracle.Classify(ctx, userText, oracle.TurnContext{
		Greeted:         st.Greeted,
		PendingQuestion: st.PendingQuestion,
		AskedQuestions:  st.AskedQuestions,
		NeedHistory:     st.NeedHistory,
	})
	if err != nil {
		oracleFailures.WithLabelValues("classify").Inc()
		o.logger.Printf("classifier unavailable, treating as statement: %v", err)
		return oracle.FallbackClassification()
	}
	return cls
}

// forceConcreteQuestion is the loop-breaker: one re-plan with forceMore set,
// then a templated question from the most critical missing slot. It never
// returns an empty string.
func (o *Orchestrator) forceConcreteQuestion(ctx context.Context, userText string, st *session.State, basePlan oracle.Plan) string {
	pc := planContext(st)
	pc.ForceMore = true
	if plan, err := o.oracle.Plan(ctx, userText, pc); err == nil {
		if q := sanitizeQuestion(firstNonEmpty(plan.Question, plan.Disambiguation)); q != "" && !st.HasAsked(q) {
			return q
		}
	} else {
		oracleFailures.WithLabelValues("plan").Inc()
	}
	slot := "medida"
	if len(basePlan.SlotsRequired) > 0 {
		if s := strings.ToLower(strings.TrimSpace(basePlan.SlotsRequired[0])); s != "" {
			slot = s
		}
	}
	return fmt.Sprintf("Necesito %s para avanzar. ¿Cuál es? (dame una opción concreta)", slot)
}

// recentNeed joins the last few utterances; the oldest context rarely
// describes the current need.
func recentNeed(st *session.State, userText string) string {
	hist := st.NeedHistory
	if len(hist) > historyWindow {
		hist = hist[len(hist)-historyWindow:]
	}
	if joined := strings.TrimSpace(strings.Join(hist, " ")); joined != "" {
		return joined
	}
	return userText
}

func planContext(st *session.State) oracle.PlanContext {
	return oracle.PlanContext{
		Greeted:             st.Greeted,
		AskedQuestions:      st.AskedQuestions,
		AnsweredSlots:       st.AnsweredSlots,
		Rounds:              st.Rounds,
		NeedHistory:         st.NeedHistory,
		ForceMore:           st.ForceMore,
		PendingQuestion:     st.PendingQuestion,
		RejectedFamilies:    st.RejectedFamilyList(),
		RejectedOptions:     st.RejectedOptionList(),
		LastQuestionOptions: st.LastQuestionOptions,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
