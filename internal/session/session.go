// Package session holds per-conversation dialogue state. Sessions live in
// process memory only; a restart loses them, which is accepted.
package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// needHistoryCap bounds how many recent utterances a session remembers.
const needHistoryCap = 8

// State is the mutable dialogue state of one conversation. Callers must
// hold the state's lock for the whole turn: the no-repeat-question and
// rejection-tracking invariants do not survive interleaved writes.
type State struct {
	sync.Mutex

	Greeted   bool
	Rounds    int
	AskStreak int

	AskedQuestions  []string
	PendingQuestion string
	AnsweredSlots   map[string]string
	NeedHistory     []string

	RejectedFamilies    map[string]bool
	RejectedOptions     map[string]bool
	LastQuestionOptions []string
	ForceMore           bool
}

func newState() *State {
	return &State{
		AnsweredSlots:    map[string]string{},
		RejectedFamilies: map[string]bool{},
		RejectedOptions:  map[string]bool{},
	}
}

// PushNeed appends a normalized utterance, dropping the oldest beyond cap.
func (s *State) PushNeed(text string) {
	s.NeedHistory = append(s.NeedHistory, text)
	if len(s.NeedHistory) > needHistoryCap {
		s.NeedHistory = s.NeedHistory[len(s.NeedHistory)-needHistoryCap:]
	}
}

// RecordAsked adds q to the asked set if absent and marks it pending.
// The pending question is always a member of the asked set.
func (s *State) RecordAsked(q string, options []string) {
	if !s.HasAsked(q) {
		s.AskedQuestions = append(s.AskedQuestions, q)
	}
	s.PendingQuestion = q
	s.LastQuestionOptions = options
	s.Rounds++
	s.AskStreak++
}

// HasAsked reports whether this exact question text was already sent.
func (s *State) HasAsked(q string) bool {
	for _, asked := range s.AskedQuestions {
		if asked == q {
			return true
		}
	}
	return false
}

// MergeSlots folds newly answered slots into the accumulated set. A later
// answer for the same slot overwrites the earlier one; blank keys or values
// are ignored.
func (s *State) MergeSlots(slots map[string]string) {
	for k, v := range slots {
		if k != "" && v != "" {
			s.AnsweredSlots[k] = v
		}
	}
}

// RejectOptions accumulates negated proposals. Idempotent.
func (s *State) RejectOptions(options []string) {
	for _, o := range options {
		if o != "" {
			s.RejectedOptions[o] = true
		}
	}
}

// RejectedOptionList returns the rejected options in stable order.
func (s *State) RejectedOptionList() []string { return sortedKeys(s.RejectedOptions) }

// RejectedFamilyList returns the rejected families in stable order.
func (s *State) RejectedFamilyList() []string { return sortedKeys(s.RejectedFamilies) }

// ResetNeed clears every per-need field after a successful result. Greeted
// survives: the session is still the same conversation.
func (s *State) ResetNeed() {
	s.Rounds = 0
	s.AskStreak = 0
	s.AskedQuestions = nil
	s.PendingQuestion = ""
	s.AnsweredSlots = map[string]string{}
	s.NeedHistory = nil
	s.ForceMore = false
	s.RejectedFamilies = map[string]bool{}
	s.RejectedOptions = map[string]bool{}
	s.LastQuestionOptions = nil
}

// Store maps session ids to state, creating lazily. Safe for concurrent
// use across different ids; per-id serialization is the State lock's job.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewStore() *Store {
	return &Store{sessions: map[string]*State{}}
}

// Get returns the state for id, creating it on first use. A blank id gets
// a fresh uuid; the effective id is returned alongside the state.
func (st *Store) Get(id string) (*State, string) {
	if id == "" {
		id = uuid.NewString()
	}
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s, id
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.sessions[id]; ok {
		return s, id
	}
	s = newState()
	st.sessions[id] = s
	return s, id
}

// Reset deletes the session entirely; equivalent to a full field reset.
func (st *Store) Reset(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
