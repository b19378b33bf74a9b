package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murph/internal/memory"
	"murph/internal/store"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (g *fakeGenerator) Complete(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "memory.db"), store.DefaultRetryPolicy())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberFactExtractsAndStoresName(t *testing.T) {
	st := newTestStore(t)
	svc := memory.New(st, &fakeGenerator{})

	resp, ok := svc.RememberFact("Hey Murph, My Name Is Ada  ")
	require.True(t, ok)
	assert.Contains(t, resp, "ada")

	value, ok := st.Fact("name")
	require.True(t, ok)
	assert.Equal(t, "ada", value)
}

func TestRememberFactIgnoresUnrelatedText(t *testing.T) {
	st := newTestStore(t)
	svc := memory.New(st, &fakeGenerator{})

	_, ok := svc.RememberFact("what's the weather like")
	assert.False(t, ok)

	_, ok = st.Fact("name")
	assert.False(t, ok)
}

func TestRecallFact(t *testing.T) {
	st := newTestStore(t)
	svc := memory.New(st, &fakeGenerator{})

	_, ok := svc.RecallFact("what's my name")
	assert.False(t, ok, "nothing stored yet")

	_, ok = svc.RememberFact("my name is Ada")
	require.True(t, ok)

	resp, ok := svc.RecallFact("What's My Name?")
	require.True(t, ok)
	assert.Equal(t, "Your name is ada.", resp)
}

func TestAnswerPersistsBothTurns(t *testing.T) {
	st := newTestStore(t)
	gen := &fakeGenerator{reply: "Blue whales are the largest animals."}
	svc := memory.New(st, gen)

	reply := svc.Answer(context.Background(), "tell me about blue whales")
	assert.Equal(t, "Blue whales are the largest animals.", reply)
	assert.Equal(t, 1, gen.calls)

	turns := st.RecentTurns(10)
	require.Len(t, turns, 2)
	assert.Equal(t, store.RoleUser, turns[0].Role)
	assert.Equal(t, "tell me about blue whales", turns[0].Content)
	assert.Equal(t, store.RoleAssistant, turns[1].Role)
	assert.Equal(t, reply, turns[1].Content)
}

func TestAnswerReusesCachedAnswer(t *testing.T) {
	st := newTestStore(t)
	gen := &fakeGenerator{reply: "Facts about blue whales: they are huge."}
	svc := memory.New(st, gen)

	first := svc.Answer(context.Background(), "blue whales")
	second := svc.Answer(context.Background(), "blue whales")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls, "second answer must come from the cache")
}

func TestAnswerCacheCanBeDisabled(t *testing.T) {
	st := newTestStore(t)
	gen := &fakeGenerator{reply: "Facts about blue whales: they are huge."}
	svc := memory.New(st, gen, memory.WithAnswerCache(false))

	svc.Answer(context.Background(), "blue whales")
	svc.Answer(context.Background(), "blue whales")

	assert.Equal(t, 2, gen.calls)
}

func TestAnswerPrefersStoredName(t *testing.T) {
	st := newTestStore(t)
	gen := &fakeGenerator{reply: "should not be used"}
	svc := memory.New(st, gen)

	_, ok := svc.RememberFact("my name is Ada")
	require.True(t, ok)

	reply := svc.Answer(context.Background(), "do you know my name")
	assert.Equal(t, "Your name is ada.", reply)
	assert.Zero(t, gen.calls)
}

func TestAnswerSurvivesGenerationFailure(t *testing.T) {
	st := newTestStore(t)
	gen := &fakeGenerator{err: errors.New("service unavailable")}
	svc := memory.New(st, gen)

	reply := svc.Answer(context.Background(), "tell me a story")
	assert.NotEmpty(t, reply)

	turns := st.RecentTurns(10)
	require.Len(t, turns, 2, "the user turn must not be lost")
	assert.Equal(t, "tell me a story", turns[0].Content)
	assert.Equal(t, reply, turns[1].Content)
}

func TestTranscriptFormat(t *testing.T) {
	st := newTestStore(t)
	svc := memory.New(st, &fakeGenerator{})

	require.NoError(t, st.AppendTurn(store.RoleUser, "hi"))
	require.NoError(t, st.AppendTurn(store.RoleAssistant, "hello"))

	assert.Equal(t, "user: hi\nassistant: hello", svc.Transcript(10))
}

func TestTranscriptEmpty(t *testing.T) {
	st := newTestStore(t)
	svc := memory.New(st, &fakeGenerator{})

	assert.Equal(t, "", svc.Transcript(10))
}
