package service

import (
	"context"
	"errors"
	"fmt"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/repository"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/docstore"
	"mocktest_backend/pkg/logger"
	"mocktest_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	ItemCorrect    = "correct"
	ItemWrong      = "wrong"
	ItemUnanswered = "unanswered"
)

// ResultItem 单题回顾
type ResultItem struct {
	Index         int          `json:"index"`
	QuestionID    string       `json:"questionId"`
	Question      string       `json:"question"`
	Options       []OptionView `json:"options"`
	Selected      model.Option `json:"selected,omitempty"`
	CorrectOption model.Option `json:"correctOption"`
	Marks         int          `json:"marks"`
	Status        string       `json:"status"`
	MarksAwarded  int          `json:"marksAwarded"`
}

type ResultView struct {
	SubmissionID    string       `json:"submissionId"`
	TestID          string       `json:"testId"`
	TestTitle       string       `json:"testTitle"`
	UserID          string       `json:"userId"`
	UserName        string       `json:"userName"`
	SubmittedAt     time.Time    `json:"submittedAt"`
	MarksObtained   int          `json:"marksObtained"`
	TotalMarks      int          `json:"totalMarks"`
	Percentage      int          `json:"percentage"`
	TimeSpent       int          `json:"timeSpent"`
	TimeSpentText   string       `json:"timeSpentText"`
	CorrectCount    int          `json:"correctCount"`
	WrongCount      int          `json:"wrongCount"`
	UnansweredCount int          `json:"unansweredCount"`
	Items           []ResultItem `json:"items"`
}

// ResultSummary 成绩列表中的一行
type ResultSummary struct {
	SubmissionID  string    `json:"submissionId"`
	TestID        string    `json:"testId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	SubmittedAt   time.Time `json:"submittedAt"`
	MarksObtained int       `json:"marksObtained"`
	TotalMarks    int       `json:"totalMarks"`
	Percentage    int       `json:"percentage"`
	TimeSpentText string    `json:"timeSpentText"`
	Trigger       string    `json:"trigger"`
}

type ResultService struct {
	Tests       *repository.MockTestRepository
	Submissions *repository.SubmissionRepository
}

func NewResultService(tests *repository.MockTestRepository, submissions *repository.SubmissionRepository) *ResultService {
	return &ResultService{Tests: tests, Submissions: submissions}
}

// ViewResult 按提交 ID 回顾成绩
func (s *ResultService) ViewResult(ctx context.Context, submissionID string) (*ResultView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ResultService.ViewResult")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

	sub, err := s.Submissions.FindByID(ctx, submissionID)
	if err != nil {
		return nil, submissionLookupError(err)
	}
	return s.build(ctx, sub)
}

// ViewResultByTestAndUser 取该用户在该试卷上最近一次提交
func (s *ResultService) ViewResultByTestAndUser(ctx context.Context, testID, userID string) (*ResultView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ResultService.ViewResultByTestAndUser")
	defer span.End()
	span.SetAttributes(attribute.String("test.id", testID), attribute.String("user.id", userID))

	sub, err := s.Submissions.FindLatestByTestAndUser(ctx, testID, userID)
	if err != nil {
		return nil, submissionLookupError(err)
	}
	return s.build(ctx, sub)
}

func submissionLookupError(err error) error {
	return lookupError(err, util.ErrSubmissionNotFound, "load submission")
}

// lookupError 只有记录缺失才映射为 notFound，其余错误原样包装
func lookupError(err, notFound error, op string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// build 逐题按评分规则重新判定对错，不信任任何已存储的判定结果
func (s *ResultService) build(ctx context.Context, sub *model.Submission) (*ResultView, error) {
	test, err := s.Tests.FindTestByID(ctx, sub.TestID)
	if err != nil {
		return nil, lookupError(err, util.ErrTestNotFound, "load test")
	}
	questions, err := s.Tests.ListQuestions(ctx, sub.TestID)
	if err != nil {
		return nil, lookupError(err, util.ErrQuestionsNotFound, "load questions")
	}
	// 无法解析的作答按全部未作答展示
	answers, err := model.DecodeAnswers(sub.Answers)
	if err != nil {
		logger.Log.Warn("submission answers could not be decoded",
			zap.String("submissionId", sub.ID), zap.Error(err))
		answers = nil
	}

	selected := make(map[string]model.Answer, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a
	}

	view := &ResultView{
		SubmissionID:  sub.ID,
		TestID:        sub.TestID,
		TestTitle:     test.Title,
		UserID:        sub.UserID,
		UserName:      sub.UserName,
		SubmittedAt:   sub.SubmittedAt,
		MarksObtained: sub.MarksObtained,
		TotalMarks:    sub.TotalMarks,
		Percentage:    util.Percentage(sub.MarksObtained, sub.TotalMarks),
		TimeSpent:     sub.TimeSpent,
		TimeSpentText: util.FormatDuration(sub.TimeSpent),
		Items:         make([]ResultItem, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		a, ok := selected[q.ID]
		if !ok {
			a = model.Answer{QuestionID: q.ID}
		}

		item := ResultItem{
			Index:         i,
			QuestionID:    q.ID,
			Question:      q.Question,
			Selected:      a.Selected,
			CorrectOption: q.CorrectOption,
			Marks:         q.Marks,
		}
		for _, o := range model.Options {
			item.Options = append(item.Options, OptionView{Letter: o, Text: q.OptionText(o)})
		}

		switch {
		case !a.Answered():
			item.Status = ItemUnanswered
			view.UnansweredCount++
		case IsCorrect(q, a):
			item.Status = ItemCorrect
			item.MarksAwarded = q.Marks
			view.CorrectCount++
		default:
			item.Status = ItemWrong
			view.WrongCount++
		}
		view.Items = append(view.Items, item)
	}

	return view, nil
}

func summarize(subs []model.Submission) []ResultSummary {
	out := make([]ResultSummary, 0, len(subs))
	for _, sub := range subs {
		out = append(out, ResultSummary{
			SubmissionID:  sub.ID,
			TestID:        sub.TestID,
			UserID:        sub.UserID,
			UserName:      sub.UserName,
			SubmittedAt:   sub.SubmittedAt,
			MarksObtained: sub.MarksObtained,
			TotalMarks:    sub.TotalMarks,
			Percentage:    util.Percentage(sub.MarksObtained, sub.TotalMarks),
			TimeSpentText: util.FormatDuration(sub.TimeSpent),
			Trigger:       sub.Trigger,
		})
	}
	return out
}

// ListUserResults 当前用户的全部成绩，最新的在前
func (s *ResultService) ListUserResults(ctx context.Context, userID string) ([]ResultSummary, error) {
	subs, err := s.Submissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(subs), nil
}

func (s *ResultService) ListTestSubmissions(ctx context.Context, testID string) ([]ResultSummary, error) {
	if _, err := s.Tests.FindTestByID(ctx, testID); err != nil {
		return nil, lookupError(err, util.ErrTestNotFound, "load test")
	}
	subs, err := s.Submissions.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	return summarize(subs), nil
}
