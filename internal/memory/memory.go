// Package memory is Murph's conversational memory service: pattern-based
// extraction of personal facts, recall of those facts, reuse of previously
// generated answers, and the generation fallback that persists each turn.
package memory

import (
	"context"
	"fmt"
	"strings"

	log "log/slog"

	"murph/internal/store"
)

// Generator produces one completion for a fully built prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	historyLimit = 10

	apologyGeneration = "I'm having trouble responding right now. Please try again later."
	apologyGeneric    = "An error occurred while processing your request."

	namePhrase = "my name is"
)

// Service is the only caller of the store. It never returns errors to the
// router: every failure on the answer path degrades to an apology string so
// the assistant always has something to say.
type Service struct {
	store        *store.Store
	gen          Generator
	cacheAnswers bool
}

type Option func(*Service)

// WithAnswerCache toggles reuse of prior assistant answers by substring
// match. The heuristic can surface a stale answer for an unrelated question
// that happens to contain the substring, so it is switchable.
func WithAnswerCache(on bool) Option {
	return func(s *Service) { s.cacheAnswers = on }
}

func New(st *store.Store, gen Generator, opts ...Option) *Service {
	s := &Service{store: st, gen: gen, cacheAnswers: true}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RememberFact extracts a name from "my name is ..." phrasing, stores it
// and returns a confirmation. Anything else is left untouched.
func (s *Service) RememberFact(text string) (string, bool) {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, namePhrase)
	if idx < 0 {
		return "", false
	}

	name := strings.TrimSpace(lower[idx+len(namePhrase):])
	if name == "" {
		return "", false
	}

	if err := s.store.UpsertFact("name", name); err != nil {
		log.Error("failed to save name", "err", err)
		return "", false
	}
	return fmt.Sprintf("Got it! I'll remember your name is %s.", name), true
}

// RecallFact answers "my name" questions from the fact table.
func (s *Service) RecallFact(text string) (string, bool) {
	if !strings.Contains(strings.ToLower(text), "my name") {
		return "", false
	}
	name, ok := s.store.Fact("name")
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Your name is %s.", name), true
}

// CachedAnswer looks for a previously generated answer containing the
// question as a substring.
func (s *Service) CachedAnswer(question string) (string, bool) {
	if !s.cacheAnswers {
		return "", false
	}
	return s.store.FindCachedAnswer(question)
}

// Transcript renders the last limit turns as "role: content" lines,
// oldest first.
func (s *Service) Transcript(limit int) string {
	turns := s.store.RecentTurns(limit)
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// Answer runs the full lookup chain: name recall, cached answer, then one
// generation call with recent history as context. Both sides of the
// exchange are persisted; persistence failures are logged, never
// propagated, so the spoken reply survives them.
func (s *Service) Answer(ctx context.Context, question string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("answer path panicked", "panic", r)
			reply = apologyGeneric
		}
	}()

	if resp, ok := s.RecallFact(question); ok {
		return resp
	}
	if resp, ok := s.CachedAnswer(question); ok {
		return resp
	}

	answer, err := s.gen.Complete(ctx, buildPrompt(s.Transcript(historyLimit), question))
	if err != nil {
		log.Error("generation failed", "err", err)
		answer = apologyGeneration
	}
	if answer == "" {
		answer = apologyGeneration
	}

	if err := s.store.AppendTurn(store.RoleUser, question); err != nil {
		log.Error("failed to persist user turn", "err", err)
	}
	if err := s.store.AppendTurn(store.RoleAssistant, answer); err != nil {
		log.Error("failed to persist assistant turn", "err", err)
	}

	return answer
}

func buildPrompt(transcript, question string) string {
	var b strings.Builder
	b.WriteString("Continue this conversation naturally. Respond as a helpful assistant.\n\n")
	if transcript != "" {
		b.WriteString(transcript)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(question)
	b.WriteString("\nAssistant: ")
	return b.String()
}
