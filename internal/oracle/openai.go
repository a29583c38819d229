package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const chatCompletionsURL = "https://api.openai.com/v1/chat/completions"

const plannerSystemPrompt = `Eres FELIA, asistente de Felemax (ferretería).
Decidís el próximo paso de la conversación: interpretar la intención, pedir el
atributo crítico que falta con UNA pregunta concreta, o pasar a búsqueda.
Devolvé SOLO JSON con el formato indicado.

PRINCIPIOS
- UNA pregunta por turno, con opciones concretas (3–5) entre paréntesis
  separadas por " | ". Nunca incluyas "no sé".
- Si el cliente rechaza una propuesta, pivotá: no repitas lo rechazado
  (mirá rejected_families y rejected_options del estado).
- No repitas una pregunta que ya esté en asked_questions.
- Nunca generes preguntas genéricas tipo "¿qué dato definimos ahora?".
- ready_to_search=true solo con familia (≥0.6) y al menos dos atributos más.
- Si state.force_more es true, devolvé {"action":"ask"} con una pregunta
  concreta para el slot más crítico que falte; nunca "search".
- Sugerí query_variants como listas de tokens de lo ya decidido, sin marcas
  ni sinónimos inventados.

SALIDA JSON EXACTA:
{"action":"ask"|"search","question":str|null,
 "intent":{"family":str|null,"family_confidence":float},
 "ready_to_search":bool,"slots_required":[str],
 "answered_slots":{"slot":"valor"},"variants_goal":25|30|40,
 "query_variants":[[str]],"must":[str],"not":[str],
 "units":{"mm":"6","in":"1","m":"6","w":"500"},
 "hypotheses":[str],"disambiguation":str|null}`

const classifierSystemPrompt = `Eres FELIA (módulo Router+Q&A) de la ferretería Felemax.
Clasificá el último mensaje del usuario:
- "answer_option": eligió una opción de la última pregunta (incluye "otro").
- "qa": pregunta real de explicación/recomendación (interrogativo explícito).
- "statement_need": afirmación/imperativo que expresa necesidad, sin pregunta.
- "smalltalk": saludo o cortesía.
- "other": otro tipo de mensaje.
Si y solo si es "qa", respondé breve (2–4 líneas), sin inventar stock ni
precios y sin cerrar con preguntas; el orquestador retomará la pendiente.

SALIDA JSON EXACTA:
{"kind":"qa"|"answer_option"|"statement_need"|"smalltalk"|"other",
 "is_qa":bool,"answer":str|null,"confidence":float}`

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAI implements Oracle over the chat-completions API. The HTTP client
// carries the timeout; an unresponsive oracle must not hang a turn.
type OpenAI struct {
	apiKey       string
	model        string
	baseURL      string
	planTemp     float64
	classifyTemp float64
	maxRetries   int
	httpClient   *http.Client
}

func NewOpenAI(apiKey, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAI{
		apiKey:       apiKey,
		model:        model,
		baseURL:      chatCompletionsURL,
		planTemp:     0.6,
		classifyTemp: 0.2,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at a compatible endpoint (proxies, tests).
func (o *OpenAI) WithBaseURL(u string) *OpenAI {
	if u != "" {
		o.baseURL = u
	}
	return o
}

// WithTuning overrides sampling temperatures and the transient-failure
// retry budget. Zero temperatures keep the defaults.
func (o *OpenAI) WithTuning(planTemp, classifyTemp float64, maxRetries int) *OpenAI {
	if planTemp > 0 {
		o.planTemp = planTemp
	}
	if classifyTemp > 0 {
		o.classifyTemp = classifyTemp
	}
	if maxRetries > 0 {
		o.maxRetries = maxRetries
	}
	return o
}

func (o *OpenAI) Plan(ctx context.Context, userText string, pc PlanContext) (Plan, error) {
	stateJSON, err := json.Marshal(pc)
	if err != nil {
		return Plan{}, fmt.Errorf("encoding plan context: %w", err)
	}
	content := fmt.Sprintf(
		"Decide el próximo paso respetando las reglas.\nstate=%s\nuser='%s'\nDevuelve SOLO el JSON con el formato indicado.",
		stateJSON, userText,
	)
	raw, err := o.send(ctx, plannerSystemPrompt, content, o.planTemp)
	if err != nil {
		return Plan{}, err
	}
	var plan Plan
	if err := json.Unmarshal(extractJSON(raw), &plan); err != nil {
		return Plan{}, fmt.Errorf("planner returned non-JSON: %w", err)
	}
	plan.Normalize(userText)
	return plan, nil
}

func (o *OpenAI) Classify(ctx context.Context, userText string, tc TurnContext) (Classification, error) {
	stateJSON, err := json.Marshal(tc)
	if err != nil {
		return Classification{}, fmt.Errorf("encoding turn context: %w", err)
	}
	content := fmt.Sprintf(
		"Clasifica y, si corresponde, responde breve.\nstate=%s\nuser='%s'\nDevuelve SOLO el JSON pedido.",
		stateJSON, userText,
	)
	raw, err := o.send(ctx, classifierSystemPrompt, content, o.classifyTemp)
	if err != nil {
		return Classification{}, err
	}
	var cls Classification
	if err := json.Unmarshal(extractJSON(raw), &cls); err != nil {
		return Classification{}, fmt.Errorf("classifier returned non-JSON: %w", err)
	}
	if cls.Kind == "" {
		if cls.IsQA {
			cls.Kind = KindQA
		} else {
			cls.Kind = KindOther
		}
	}
	cls.IsQA = cls.Kind == KindQA
	cls.Answer = strings.TrimSpace(cls.Answer)
	if cls.Confidence == 0 {
		if cls.IsQA {
			cls.Confidence = 0.8
		} else {
			cls.Confidence = 0.6
		}
	}
	return cls, nil
}

func (o *OpenAI) send(ctx context.Context, system, user string, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Temperature: temperature,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		content, retryable, err := o.sendOnce(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", lastErr
}

// sendOnce runs one request. The bool return marks failures worth retrying:
// transport errors, rate limits and 5xx.
func (o *OpenAI) sendOnce(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewBuffer(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}
	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", false, fmt.Errorf("empty completion")
	}
	return cr.Choices[0].Message.Content, false, nil
}

// extractJSON tolerates models that wrap the payload in a code fence.
func extractJSON(s string) []byte {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	return []byte(s)
}
