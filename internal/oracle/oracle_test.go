package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestPlanNormalizeClampsGoal(t *testing.T) {
	cases := map[int]int{0: 25, 10: 25, 25: 25, 29: 25, 30: 30, 39: 30, 40: 40, 99: 40}
	for in, want := range cases {
		p := Plan{VariantsGoal: in}
		p.Normalize("")
		if p.VariantsGoal != want {
			t.Fatalf("goal %d clamped to %d, want %d", in, p.VariantsGoal, want)
		}
	}
}

func TestPlanNormalizeDropsBlankTokens(t *testing.T) {
	p := Plan{
		Action:        "search",
		Must:          []string{" perfil ", "", "  "},
		QueryVariants: [][]string{{"perfil", ""}, {}, {" c "}},
	}
	p.Normalize("")
	if !reflect.DeepEqual(p.Must, []string{"perfil"}) {
		t.Fatalf("must = %v", p.Must)
	}
	want := [][]string{{"perfil"}, {"c"}}
	if !reflect.DeepEqual(p.QueryVariants, want) {
		t.Fatalf("variants = %v, want %v", p.QueryVariants, want)
	}
	if p.Action != ActionSearch {
		t.Fatalf("valid action must survive, got %q", p.Action)
	}
}

func TestPlanNormalizeExtractsUnitsLocally(t *testing.T) {
	p := Plan{}
	p.Normalize("un codo de 32 mm")
	if p.Units["mm"] != "32" {
		t.Fatalf("units must come from the text when absent, got %v", p.Units)
	}
}

func TestFallbackPlanAvoidsRepeatingItself(t *testing.T) {
	first := FallbackPlan("algo", nil)
	if first.Action != ActionAsk || first.Question == "" {
		t.Fatalf("fallback must ask a concrete question, got %+v", first)
	}
	second := FallbackPlan("algo", []string{first.Question})
	if second.Question == first.Question {
		t.Fatal("fallback must not repeat an already-asked question")
	}
}

func TestOpenAIPlanParsesFencedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		payload := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "```json\n{\"action\":\"ask\",\"question\":\"¿Qué medida? (10mm | 13mm)\",\"variants_goal\":30}\n```",
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "gpt-4o-mini", time.Second)
	o.httpClient = srv.Client()
	o.baseURL = srv.URL

	plan, err := o.Plan(context.Background(), "quiero un taladro", PlanContext{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Action != ActionAsk || plan.Question == "" || plan.VariantsGoal != 30 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestOpenAITuningSetsTemperatures(t *testing.T) {
	var got []float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Temperature float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		got = append(got, req.Temperature)
		payload := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"content": "{}"},
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "", time.Second).WithTuning(0.9, 0.1, 0)
	o.httpClient = srv.Client()
	o.baseURL = srv.URL

	if _, err := o.Plan(context.Background(), "algo", PlanContext{}); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := o.Classify(context.Background(), "algo", TurnContext{}); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got) != 2 || got[0] != 0.9 || got[1] != 0.1 {
		t.Fatalf("temperatures sent = %v, want [0.9 0.1]", got)
	}
}

func TestOpenAIRetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		payload := map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"content": "{\"action\":\"ask\",\"question\":\"¿Qué medida?\"}"},
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "", time.Second).WithTuning(0, 0, 1)
	o.httpClient = srv.Client()
	o.baseURL = srv.URL

	plan, err := o.Plan(context.Background(), "algo", PlanContext{})
	if err != nil {
		t.Fatalf("retry must absorb a single 503: %v", err)
	}
	if plan.Question == "" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestOpenAINoRetryOnClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	o := NewOpenAI("bad-key", "", time.Second).WithTuning(0, 0, 3)
	o.httpClient = srv.Client()
	o.baseURL = srv.URL

	if _, err := o.Plan(context.Background(), "algo", PlanContext{}); err == nil {
		t.Fatal("auth failure must surface as an error")
	}
	if calls != 1 {
		t.Fatalf("4xx (except 429) must not retry, got %d attempts", calls)
	}
}

func TestOpenAIClassifyErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "", time.Second)
	o.httpClient = srv.Client()
	o.baseURL = srv.URL

	if _, err := o.Classify(context.Background(), "hola", TurnContext{}); err == nil {
		t.Fatal("rate limiting must surface as an error for the caller to absorb")
	}
}
