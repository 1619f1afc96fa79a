package service

import (
	"context"
	"errors"
	"fmt"
	"mocktest_backend/internal/config"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/repository"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/docstore"
	"mocktest_backend/pkg/logger"
	"mocktest_backend/pkg/monitoring"
	"mocktest_backend/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const viewCountTimeout = 5 * time.Second

type SessionService struct {
	Tests       *repository.MockTestRepository
	Submissions *repository.SubmissionRepository
	Config      config.SessionConfig
	Clock       Clock

	mu       sync.Mutex
	sessions map[string]*Session
	active   map[string]string // testID|userID -> sessionID
}

func NewSessionService(tests *repository.MockTestRepository, submissions *repository.SubmissionRepository, cfg config.SessionConfig) *SessionService {
	return &SessionService{
		Tests:       tests,
		Submissions: submissions,
		Config:      cfg,
		Clock:       realClock{},
		sessions:    make(map[string]*Session),
		active:      make(map[string]string),
	}
}

func activeKey(testID, userID string) string {
	return testID + "|" + userID
}

// StartSession 加载试卷和题目并开始计时。
// 同一用户同一试卷已有进行中的会话时直接返回该会话。
func (s *SessionService) StartSession(ctx context.Context, testID, userID, userName string) (*Session, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SessionService.StartSession")
	defer span.End()
	span.SetAttributes(attribute.String("test.id", testID), attribute.String("user.id", userID))

	if existing := s.activeSession(testID, userID); existing != nil {
		return existing, nil
	}

	sess := newSession(testID, userID, userName, s.Clock, s.Submissions, s.Config.SubmitTimeout)

	// 两次读取只依赖 testID，并发发出；互不取消，错误按试卷优先归属
	var (
		test      *model.MockTest
		questions []model.Question
		testErr   error
		qErr      error
	)
	var g errgroup.Group
	g.Go(func() error {
		test, testErr = s.Tests.FindTestByID(ctx, testID)
		return testErr
	})
	g.Go(func() error {
		questions, qErr = s.Tests.ListQuestions(ctx, testID)
		return qErr
	})
	_ = g.Wait()

	if err := startError(test, questions, testErr, qErr); err != nil {
		sess.fail(err)
		span.RecordError(err)
		logger.Log.Info("mock test session failed to start",
			zap.String("testId", testID), zap.String("userId", userID), zap.Error(err))
		return nil, err
	}

	s.bumpViewCount(ctx, test)

	s.mu.Lock()
	// 并发启动时以先登记的会话为准
	if id, ok := s.active[activeKey(testID, userID)]; ok {
		if other := s.sessions[id]; other != nil {
			s.mu.Unlock()
			return other, nil
		}
	}
	sess.begin(test, questions)
	s.sessions[sess.ID] = sess
	s.active[activeKey(testID, userID)] = sess.ID
	s.mu.Unlock()

	monitoring.SessionsStarted.Inc()
	monitoring.ActiveSessions.Inc()
	logger.Log.Info("mock test session started",
		zap.String("sessionId", sess.ID),
		zap.String("testId", testID),
		zap.String("userId", userID),
		zap.Int("questions", len(questions)),
		zap.Int("durationMinutes", test.Duration))

	return sess, nil
}

// startError 试卷错误优先于题目错误，保证返回的错误类型确定
func startError(test *model.MockTest, questions []model.Question, testErr, qErr error) error {
	if testErr != nil {
		return fmt.Errorf("%w: %w", util.ErrTestNotFound, testErr)
	}
	if !test.IsActive {
		return fmt.Errorf("%w: test %s is not active", util.ErrTestNotFound, test.ID)
	}
	if qErr != nil {
		return fmt.Errorf("%w: %w", util.ErrQuestionsNotFound, qErr)
	}
	if len(questions) == 0 {
		return util.ErrQuestionsNotFound
	}
	return nil
}

// bumpViewCount 浏览量是附带操作，失败只记录日志，不影响作答
func (s *SessionService) bumpViewCount(ctx context.Context, test *model.MockTest) {
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, viewCountTimeout)
		defer cancel()
		if err := s.Tests.IncrementViewCount(ctx, test); err != nil {
			logger.Log.Debug("view count increment failed", zap.String("testId", test.ID), zap.Error(err))
		}
	}()
}

func (s *SessionService) activeSession(testID, userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.active[activeKey(testID, userID)]
	if !ok {
		return nil
	}
	sess := s.sessions[id]
	if sess == nil {
		delete(s.active, activeKey(testID, userID))
		return nil
	}
	switch sess.Status() {
	case StatusInProgress, StatusSubmitting:
		return sess
	}
	// 已完成的会话不再复用，允许重新作答
	delete(s.active, activeKey(testID, userID))
	return nil
}

// GetSession 只返回属于该用户的会话
func (s *SessionService) GetSession(sessionID, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, util.ErrSessionNotFound
	}
	return sess, nil
}

// Abandon 用户退出作答，丢弃会话且不写入任何记录
func (s *SessionService) Abandon(sessionID, userID string) error {
	sess, err := s.GetSession(sessionID, userID)
	if err != nil {
		return err
	}
	if sess.Status() == StatusSubmitting {
		return util.ErrSubmissionInProgress
	}

	s.remove(sess)
	logger.Log.Info("mock test session abandoned", zap.String("sessionId", sessionID))
	return nil
}

func (s *SessionService) remove(sess *Session) {
	sess.Abandon()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return
	}
	delete(s.sessions, sess.ID)
	key := activeKey(sess.TestID, sess.UserID)
	if s.active[key] == sess.ID {
		delete(s.active, key)
	}
	monitoring.ActiveSessions.Dec()
}

// Sweep 清理保留期外的已完成会话，以及长时间无操作的会话。
// 倒计时未结束的会话不按空闲清理，到时由自动交卷收尾。返回清理数量。
func (s *SessionService) Sweep() int {
	now := s.Clock.Now()

	s.mu.Lock()
	candidates := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.Unlock()

	removed := 0
	for _, sess := range candidates {
		if age, done := sess.completedFor(now); done {
			if age >= s.Config.Retention {
				s.remove(sess)
				removed++
			}
			continue
		}
		if sess.Status() == StatusSubmitting || sess.counting() {
			continue
		}
		if s.Config.IdleTimeout > 0 && sess.idleFor(now) >= s.Config.IdleTimeout {
			logger.Log.Info("discarding idle mock test session", zap.String("sessionId", sess.ID))
			s.remove(sess)
			removed++
		}
	}
	return removed
}

// Shutdown 服务退出时停止所有倒计时，未提交的作答被丢弃
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.Unlock()

	for _, sess := range all {
		s.remove(sess)
	}
}

func (s *SessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// IsNotFound 判断是否属于 NotFound 类错误
func IsNotFound(err error) bool {
	return errors.Is(err, util.ErrTestNotFound) ||
		errors.Is(err, util.ErrQuestionsNotFound) ||
		errors.Is(err, util.ErrSubmissionNotFound) ||
		errors.Is(err, util.ErrSessionNotFound) ||
		errors.Is(err, docstore.ErrNotFound)
}
