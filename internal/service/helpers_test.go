package service

import (
	"context"
	"errors"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/repository"
	"mocktest_backend/pkg/docstore"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) lastTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// recordingWriter 记录每次写入；failures 次之前的写入返回错误
type recordingWriter struct {
	mu       sync.Mutex
	calls    int
	failures int
	saved    []*model.Submission
	block    chan struct{}
	entered  chan struct{}
}

func (w *recordingWriter) Create(ctx context.Context, s *model.Submission) error {
	w.mu.Lock()
	w.calls++
	call := w.calls
	block, entered := w.block, w.entered
	w.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	if call <= w.failures {
		return errors.New("backend unavailable")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	cp := *s
	w.saved = append(w.saved, &cp)
	return nil
}

func (w *recordingWriter) savedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.saved)
}

func (w *recordingWriter) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func sampleTest() *model.MockTest {
	return &model.MockTest{
		ID:       "test-1",
		Title:    "Physics Mock 1",
		ExamID:   "exam-1",
		Duration: 1,
		IsActive: true,
	}
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", TestID: "test-1", Question: "1+1?", OptionA: "2", OptionB: "3", OptionC: "4", OptionD: "5", CorrectOption: model.OptionA, Marks: 5},
		{ID: "q2", TestID: "test-1", Question: "2+1?", OptionA: "2", OptionB: "3", OptionC: "4", OptionD: "5", CorrectOption: model.OptionB, Marks: 5},
	}
}

func startedSession(t *testing.T, clock *fakeClock, w SubmissionWriter) *Session {
	t.Helper()
	s := newSession("test-1", "user-1", "Ada", clock, w, time.Second)
	s.begin(sampleTest(), sampleQuestions())
	t.Cleanup(s.Abandon)
	return s
}

// tickN 同步驱动倒计时，返回实际生效的次数
func tickN(s *Session, clock *fakeClock, n int) int {
	applied := 0
	for i := 0; i < n; i++ {
		s.mu.Lock()
		cd := s.countdown
		s.mu.Unlock()
		if cd == nil {
			break
		}
		clock.Advance(time.Second)
		s.tick(cd)
		applied++
	}
	return applied
}

func seedStore(t *testing.T, store docstore.Store, test *model.MockTest, qs []model.Question) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMockTestRepository(store)
	require.NoError(t, repo.CreateTest(ctx, test))
	for i := range qs {
		require.NoError(t, repo.CreateQuestion(ctx, &qs[i]))
	}
}
