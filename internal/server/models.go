package server

import "strings"

// ChatRequest is one inbound user turn. Field aliases keep older WhatsApp
// bridge payloads working: session/session_id and text/message are
// interchangeable.
type ChatRequest struct {
	Session   string `json:"session"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Message   string `json:"message"`
}

// EffectiveSession returns the first non-blank session alias.
func (r ChatRequest) EffectiveSession() string {
	if s := strings.TrimSpace(r.Session); s != "" {
		return s
	}
	return strings.TrimSpace(r.SessionID)
}

// EffectiveText returns the first non-blank text alias.
func (r ChatRequest) EffectiveText() string {
	if t := strings.TrimSpace(r.Text); t != "" {
		return t
	}
	return strings.TrimSpace(r.Message)
}

// ChatResponse carries the assistant reply plus the resolved session id, so
// clients that omitted one can keep the conversation going.
type ChatResponse struct {
	SessionID string                 `json:"session_id"`
	Reply     string                 `json:"reply"`
	Trace     map[string]interface{} `json:"trace,omitempty"`
}

// HTTPError is the JSON error envelope.
type HTTPError struct {
	Error string `json:"error"`
}

// ReindexResponse reports a catalog rebuild.
type ReindexResponse struct {
	Entries int `json:"entries"`
}
