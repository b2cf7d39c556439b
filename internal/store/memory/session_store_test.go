package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

func session(id string, status domain.SessionStatus) domain.AnalysisSession {
	return domain.AnalysisSession{
		ID:     id,
		Status: status,
		Event: domain.Event{
			ID:     "ev-" + id,
			Text:   "Fed announces surprise rate cut",
			Author: domain.Author{Name: "Reuters", Handle: "Reuters"},
		},
		StartTime: time.Now().UTC(),
	}
}

func TestAppendAndGet(t *testing.T) {
	s := NewSessionStore()
	require.NoError(t, s.Append(session("s1", domain.SessionActive)))

	got, ok := s.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestAppendDuplicateRejected(t *testing.T) {
	s := NewSessionStore()
	require.NoError(t, s.Append(session("s1", domain.SessionActive)))
	assert.Error(t, s.Append(session("s1", domain.SessionActive)))
}

func TestUpdateUnknownRejected(t *testing.T) {
	s := NewSessionStore()
	err := s.Update(session("ghost", domain.SessionComplete))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	s := NewSessionStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(session(fmt.Sprintf("s%d", i), domain.SessionActive)))
	}

	all := s.All()
	require.Len(t, all, 5)
	for i, sess := range all {
		assert.Equal(t, fmt.Sprintf("s%d", i), sess.ID)
	}
}

func TestReadsAreDeepCopies(t *testing.T) {
	s := NewSessionStore()
	sess := session("s1", domain.SessionActive)
	sess.Steps = []domain.AnalysisStep{{
		ID:     "step1",
		Type:   domain.StepReceiving,
		Status: domain.StepStatusComplete,
		Data:   map[string]any{"k": "v"},
	}}
	require.NoError(t, s.Append(sess))

	got, ok := s.Get("s1")
	require.True(t, ok)
	got.Steps[0].Data["k"] = "mutated"
	got.Steps[0].Status = domain.StepStatusError

	again, ok := s.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "v", again.Steps[0].Data["k"])
	assert.Equal(t, domain.StepStatusComplete, again.Steps[0].Status)
}

func TestUpdateReplacesSnapshot(t *testing.T) {
	s := NewSessionStore()
	sess := session("s1", domain.SessionActive)
	require.NoError(t, s.Append(sess))

	sess.Status = domain.SessionComplete
	end := time.Now().UTC()
	sess.EndTime = &end
	require.NoError(t, s.Update(sess))

	got, ok := s.Get("s1")
	require.True(t, ok)
	assert.Equal(t, domain.SessionComplete, got.Status)
	require.NotNil(t, got.EndTime)
}

func TestFilterByStatusAndAuthor(t *testing.T) {
	s := NewSessionStore()
	a := session("s1", domain.SessionComplete)
	b := session("s2", domain.SessionError)
	c := session("s3", domain.SessionComplete)
	c.Event.Author = domain.Author{Name: "Bloomberg Markets", Handle: "markets"}
	require.NoError(t, s.Append(a))
	require.NoError(t, s.Append(b))
	require.NoError(t, s.Append(c))

	got := s.Filter(domain.SessionFilter{Statuses: []domain.SessionStatus{domain.SessionComplete}})
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s3", got[1].ID)

	got = s.Filter(domain.SessionFilter{Author: "bloomberg"})
	require.Len(t, got, 1)
	assert.Equal(t, "s3", got[0].ID)
}

func TestFilterByConfidenceAndTrades(t *testing.T) {
	s := NewSessionStore()

	traded := session("s1", domain.SessionComplete)
	traded.MarketImpacts = []domain.ImpactJudgment{{MarketID: "m1", Confidence: 0.9}}
	traded.Trades = []domain.TradeExecution{{ID: "t1", Status: domain.TradeStatusConfirmed}}
	require.NoError(t, s.Append(traded))

	idle := session("s2", domain.SessionComplete)
	idle.MarketImpacts = []domain.ImpactJudgment{{MarketID: "m2", Confidence: 0.2}}
	require.NoError(t, s.Append(idle))

	minConf := 0.5
	got := s.Filter(domain.SessionFilter{MinConfidence: &minConf})
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	minTrades := 1
	got = s.Filter(domain.SessionFilter{MinTrades: &minTrades})
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewSessionStore()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			_ = s.Append(session(id, domain.SessionActive))
			sess, _ := s.Get(id)
			sess.Status = domain.SessionComplete
			_ = s.Update(sess)
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.All()
			_ = s.Filter(domain.SessionFilter{Statuses: []domain.SessionStatus{domain.SessionComplete}})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
}
