package service

import (
	"context"
	"fmt"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/logger"
	"mocktest_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
)

type SessionStatus string

const (
	StatusLoading    SessionStatus = "loading"
	StatusInProgress SessionStatus = "in_progress"
	StatusSubmitting SessionStatus = "submitting"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
	StatusAbandoned  SessionStatus = "abandoned"
)

const tickInterval = time.Second

// SubmissionWriter 持久化一次提交
type SubmissionWriter interface {
	Create(ctx context.Context, s *model.Submission) error
}

type OptionView struct {
	Letter model.Option `json:"letter"`
	Text   string       `json:"text"`
}

// QuestionView 作答中展示的题目，不含标准答案
type QuestionView struct {
	ID       string       `json:"id"`
	Index    int          `json:"index"`
	Text     string       `json:"text"`
	Options  []OptionView `json:"options"`
	Marks    int          `json:"marks"`
	Selected model.Option `json:"selected,omitempty"`
}

// SessionState 会话快照，供渲染当前题目、剩余时间和进度
type SessionState struct {
	SessionID        string         `json:"sessionId"`
	TestID           string         `json:"testId"`
	TestTitle        string         `json:"testTitle"`
	Status           SessionStatus  `json:"status"`
	CurrentIndex     int            `json:"currentIndex"`
	QuestionCount    int            `json:"questionCount"`
	AnsweredCount    int            `json:"answeredCount"`
	Selections       []model.Option `json:"selections"`
	Current          *QuestionView  `json:"current,omitempty"`
	RemainingSeconds int            `json:"remainingSeconds"`
	RemainingText    string         `json:"remainingText"`
	SubmissionID     string         `json:"submissionId,omitempty"`
	LastError        string         `json:"lastError,omitempty"`
}

// Session 一次限时作答。所有状态由 mu 保护，
// 倒计时协程与 HTTP 请求都经由同一组方法修改状态。
type Session struct {
	ID       string
	UserID   string
	UserName string
	TestID   string

	clock         Clock
	writer        SubmissionWriter
	submitTimeout time.Duration
	submissionID  string

	mu           sync.Mutex
	status       SessionStatus
	test         *model.MockTest
	questions    []model.Question
	answers      []model.Answer
	current      int
	remaining    int
	startedAt    time.Time
	lastActivity time.Time
	completedAt  time.Time
	inFlight     bool
	closed       bool
	countdown    *Countdown
	submission   *model.Submission
	lastErr      error
	subscribers  map[int]chan SessionState
	nextSubID    int
}

func newSession(testID, userID, userName string, clock Clock, writer SubmissionWriter, submitTimeout time.Duration) *Session {
	now := clock.Now()
	return &Session{
		ID:            model.GenerateUUID(),
		UserID:        userID,
		UserName:      userName,
		TestID:        testID,
		clock:         clock,
		writer:        writer,
		submitTimeout: submitTimeout,
		submissionID:  model.GenerateUUID(),
		status:        StatusLoading,
		lastActivity:  now,
		subscribers:   make(map[int]chan SessionState),
	}
}

// begin Loading → InProgress：每题一个未作答记录，顺序与题目一致，然后启动倒计时
func (s *Session) begin(test *model.MockTest, questions []model.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.test = test
	s.questions = questions
	s.answers = make([]model.Answer, len(questions))
	for i := range questions {
		s.answers[i] = model.Answer{QuestionID: questions[i].ID}
	}
	s.current = 0
	s.remaining = test.DurationSeconds()
	s.startedAt = s.clock.Now()
	s.lastActivity = s.startedAt
	s.status = StatusInProgress
	s.startCountdownLocked()
	s.notifyLocked()
}

// fail Loading → Failed
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.lastErr = err
}

func (s *Session) startCountdownLocked() {
	cd := NewCountdown(s.clock, tickInterval)
	s.countdown = cd
	cd.Start(func() bool {
		return s.tick(cd)
	})
}

func (s *Session) stopCountdownLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

// tick 每秒一次；归零时跳过确认直接自动提交
func (s *Session) tick(owner *Countdown) bool {
	s.mu.Lock()
	if s.countdown == nil || s.countdown != owner || s.status != StatusInProgress {
		s.mu.Unlock()
		return false
	}

	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		s.notifyLocked()
		s.mu.Unlock()
		return true
	}
	s.notifyLocked()
	s.mu.Unlock()

	logger.Log.Info("mock test time expired, auto submitting",
		zap.String("sessionId", s.ID), zap.String("testId", s.TestID))
	if _, err := s.Submit(context.Background(), model.TriggerAuto); err != nil {
		logger.Log.Warn("auto submit failed", zap.String("sessionId", s.ID), zap.Error(err))
	}
	return false
}

func (s *Session) touchLocked() {
	s.lastActivity = s.clock.Now()
}

// SelectOption 覆盖当前题的选择（后写覆盖），不访问外部存储
func (s *Session) SelectOption(option model.Option) error {
	if !option.Valid() {
		return util.ErrInvalidOption
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return util.ErrSessionClosed
	}

	s.answers[s.current].Selected = option
	s.touchLocked()
	s.notifyLocked()
	return nil
}

func (s *Session) Next() error {
	return s.move(func(cur int) int { return cur + 1 })
}

func (s *Session) Previous() error {
	return s.move(func(cur int) int { return cur - 1 })
}

func (s *Session) GoTo(index int) error {
	return s.move(func(int) int { return index })
}

// move 指针限制在 [0, n-1]，越界为无操作
func (s *Session) move(target func(cur int) int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return util.ErrSessionClosed
	}

	idx := target(s.current)
	if idx < 0 {
		idx = 0
	}
	if last := len(s.questions) - 1; idx > last {
		idx = last
	}
	s.current = idx
	s.touchLocked()
	s.notifyLocked()
	return nil
}

// RequestSubmit 剩余时间大于 0 时需要用户确认（confirm=true，不做任何操作）；
// 时间已到则直接提交。
func (s *Session) RequestSubmit(ctx context.Context) (confirm bool, sub *model.Submission, err error) {
	s.mu.Lock()
	remaining := s.remaining
	status := s.status
	s.mu.Unlock()

	if status == StatusInProgress && remaining > 0 {
		return true, nil, nil
	}
	sub, err = s.Submit(ctx, model.TriggerManual)
	return false, sub, err
}

// Submit 幂等提交。已有提交在进行中时直接返回 ErrSubmissionInProgress，
// 不会产生第二次写入；写入失败时回到 InProgress，可重试。
func (s *Session) Submit(ctx context.Context, trigger string) (*model.Submission, error) {
	s.mu.Lock()
	switch {
	case s.status == StatusCompleted:
		sub := s.submission
		s.mu.Unlock()
		return sub, nil
	case s.inFlight:
		s.mu.Unlock()
		return nil, util.ErrSubmissionInProgress
	case s.status != StatusInProgress:
		s.mu.Unlock()
		return nil, util.ErrSessionClosed
	}

	s.inFlight = true
	s.status = StatusSubmitting
	s.stopCountdownLocked()
	answers := make([]model.Answer, len(s.answers))
	copy(answers, s.answers)
	now := s.clock.Now()
	elapsed := int(now.Sub(s.startedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	s.touchLocked()
	s.notifyLocked()
	s.mu.Unlock()

	obtained, total := Score(s.questions, answers)
	sub := &model.Submission{
		ID:            s.submissionID,
		TestID:        s.TestID,
		UserID:        s.UserID,
		UserName:      s.UserName,
		SubmittedAt:   now,
		TotalMarks:    total,
		MarksObtained: obtained,
		TimeSpent:     elapsed,
		Trigger:       trigger,
	}

	blob, err := model.EncodeAnswers(answers)
	if err == nil {
		sub.Answers = blob
		err = s.persist(ctx, sub)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		monitoring.SubmissionsTotal.WithLabelValues(trigger, "error").Inc()
		s.lastErr = err
		if s.closed {
			s.status = StatusAbandoned
			return nil, fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
		}
		s.status = StatusInProgress
		if s.remaining > 0 {
			s.startCountdownLocked()
		}
		s.notifyLocked()
		return nil, fmt.Errorf("%w: %v", util.ErrPersistenceFailure, err)
	}

	monitoring.SubmissionsTotal.WithLabelValues(trigger, "ok").Inc()
	s.status = StatusCompleted
	s.submission = sub
	s.completedAt = s.clock.Now()
	s.lastErr = nil
	s.notifyLocked()

	logger.Log.Info("mock test submitted",
		zap.String("sessionId", s.ID),
		zap.String("submissionId", sub.ID),
		zap.String("trigger", trigger),
		zap.Int("marksObtained", sub.MarksObtained),
		zap.Int("totalMarks", sub.TotalMarks),
		zap.Int("timeSpent", sub.TimeSpent))
	return sub, nil
}

func (s *Session) persist(ctx context.Context, sub *model.Submission) error {
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}
	return s.writer.Create(ctx, sub)
}

// Abandon 退出作答：停止倒计时并丢弃状态，不写入任何记录。
// 进行中的写入不受影响，由 Submit 自行收尾。
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	if s.status != StatusCompleted && !s.inFlight {
		s.status = StatusAbandoned
	}
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Subscribe 订阅状态变化。通道只保留最新快照；cancel 可重复调用。
func (s *Session) Subscribe() (<-chan SessionState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan SessionState, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.stateLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			close(c)
			delete(s.subscribers, id)
		}
	}
}

func (s *Session) notifyLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	st := s.stateLocked()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	st := SessionState{
		SessionID:        s.ID,
		TestID:           s.TestID,
		Status:           s.status,
		CurrentIndex:     s.current,
		QuestionCount:    len(s.questions),
		RemainingSeconds: s.remaining,
		RemainingText:    util.FormatClock(s.remaining),
		Selections:       make([]model.Option, len(s.answers)),
	}
	if s.test != nil {
		st.TestTitle = s.test.Title
	}
	for i, a := range s.answers {
		st.Selections[i] = a.Selected
		if a.Answered() {
			st.AnsweredCount++
		}
	}
	if len(s.questions) > 0 {
		q := &s.questions[s.current]
		view := &QuestionView{
			ID:       q.ID,
			Index:    s.current,
			Text:     q.Question,
			Marks:    q.Marks,
			Selected: s.answers[s.current].Selected,
		}
		for _, o := range model.Options {
			view.Options = append(view.Options, OptionView{Letter: o, Text: q.OptionText(o)})
		}
		st.Current = view
	}
	if s.submission != nil {
		st.SubmissionID = s.submission.ID
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Answers 当前作答的副本
func (s *Session) Answers() []model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

// counting 作答中且仍有剩余时间
func (s *Session) counting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusInProgress && s.remaining > 0
}

func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

func (s *Session) completedFor(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCompleted {
		return 0, false
	}
	return now.Sub(s.completedAt), true
}
