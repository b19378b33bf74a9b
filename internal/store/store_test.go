package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, retry RetryPolicy) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"), retry)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func noSleep(p *int) func(time.Duration) {
	return func(time.Duration) { *p++ }
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "memory.db")
	s, err := Open(path, DefaultRetryPolicy())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AppendTurn(RoleUser, "hello"))
}

func TestUpsertFactReplacesRow(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	require.NoError(t, s.UpsertFact("name", "ada"))
	require.NoError(t, s.UpsertFact("Name", "grace"))

	value, ok := s.Fact("NAME")
	require.True(t, ok)
	assert.Equal(t, "grace", value)

	var count int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM personal_info WHERE key = 'name'`,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestFactAbsent(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	_, ok := s.Fact("name")
	assert.False(t, ok)
}

func TestRecentTurnsReturnsLastNOldestFirst(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	for i := 1; i <= 15; i++ {
		role := RoleUser
		if i%2 == 0 {
			role = RoleAssistant
		}
		require.NoError(t, s.AppendTurn(role, fmt.Sprintf("turn %d", i)))
	}

	turns := s.RecentTurns(10)
	require.Len(t, turns, 10)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("turn %d", i+6), turn.Content)
	}
}

func TestRecentTurnsDefaultLimit(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	for i := 0; i < 12; i++ {
		require.NoError(t, s.AppendTurn(RoleUser, fmt.Sprintf("turn %d", i)))
	}

	assert.Len(t, s.RecentTurns(0), DefaultHistoryLimit)
}

func TestRecentTurnsEmpty(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())
	assert.Empty(t, s.RecentTurns(10))
}

func TestFindCachedAnswerMatchesAssistantOnly(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	require.NoError(t, s.AppendTurn(RoleUser, "tell me about cats"))
	require.NoError(t, s.AppendTurn(RoleAssistant, "cats are small carnivores"))
	require.NoError(t, s.AppendTurn(RoleAssistant, "cats sleep most of the day"))

	content, ok := s.FindCachedAnswer("cats")
	require.True(t, ok)
	assert.Equal(t, "cats sleep most of the day", content)

	// user turns never satisfy a cache lookup
	_, ok = s.FindCachedAnswer("tell me about")
	assert.False(t, ok)
}

func TestFindCachedAnswerCaseSensitive(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	require.NoError(t, s.AppendTurn(RoleAssistant, "Cats are great"))

	_, ok := s.FindCachedAnswer("cats")
	assert.False(t, ok)

	content, ok := s.FindCachedAnswer("Cats")
	require.True(t, ok)
	assert.Equal(t, "Cats are great", content)
}

func TestFindCachedAnswerEmptyQuery(t *testing.T) {
	s := newTestStore(t, DefaultRetryPolicy())

	require.NoError(t, s.AppendTurn(RoleAssistant, "anything"))

	_, ok := s.FindCachedAnswer("")
	assert.False(t, ok)
}

func TestAppendTurnRejectsInvalidRoleWithoutRetry(t *testing.T) {
	var sleeps int
	s := newTestStore(t, RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond, Sleep: noSleep(&sleeps)})

	err := s.AppendTurn("system", "not allowed")
	require.ErrorIs(t, err, ErrInvalidRole)
	assert.Zero(t, sleeps)
	assert.Empty(t, s.RecentTurns(10))
}

func TestAppendTurnRecoversFromTransientContention(t *testing.T) {
	var sleeps int
	s := newTestStore(t, RetryPolicy{MaxAttempts: 5, Delay: 100 * time.Millisecond, Sleep: noSleep(&sleeps)})

	failures := 2
	s.hooks.execTurn = func(query string, args ...any) (sql.Result, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return s.db.Exec(query, args...)
	}

	require.NoError(t, s.AppendTurn(RoleUser, "hello"))
	assert.Equal(t, 2, sleeps)

	turns := s.RecentTurns(1)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)
}

func TestAppendTurnGivesUpAfterConfiguredAttempts(t *testing.T) {
	var sleeps int
	s := newTestStore(t, RetryPolicy{MaxAttempts: 5, Delay: 100 * time.Millisecond, Sleep: noSleep(&sleeps)})

	attempts := 0
	s.hooks.execTurn = func(string, ...any) (sql.Result, error) {
		attempts++
		return nil, errors.New("database is locked (5) (SQLITE_BUSY)")
	}

	err := s.AppendTurn(RoleUser, "hello")
	require.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 4, sleeps)
}

func TestAppendTurnSurfacesNonBusyErrorImmediately(t *testing.T) {
	var sleeps int
	s := newTestStore(t, RetryPolicy{MaxAttempts: 5, Delay: 100 * time.Millisecond, Sleep: noSleep(&sleeps)})

	attempts := 0
	s.hooks.execTurn = func(string, ...any) (sql.Result, error) {
		attempts++
		return nil, errors.New("constraint failed")
	}

	err := s.AppendTurn(RoleUser, "hello")
	require.ErrorIs(t, err, ErrWrite)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, sleeps)
}
