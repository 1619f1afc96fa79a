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
	"strings"

	"go.uber.org/zap"
)

type MockTestService struct {
	Repo *repository.MockTestRepository
}

func NewMockTestService(repo *repository.MockTestRepository) *MockTestService {
	return &MockTestService{Repo: repo}
}

type MockTestReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ExamID      *string `json:"examId"`
	Duration    *int    `json:"duration" binding:"omitempty,gt=0"`
	IsActive    *bool   `json:"isActive"`
}

type QuestionReq struct {
	Question      string `json:"question" binding:"required"`
	OptionA       string `json:"optionA" binding:"required"`
	OptionB       string `json:"optionB" binding:"required"`
	OptionC       string `json:"optionC" binding:"required"`
	OptionD       string `json:"optionD" binding:"required"`
	CorrectOption string `json:"correctOption" binding:"required,oneof=A B C D"`
	Marks         int    `json:"marks" binding:"required,gt=0"`
}

func testLookupError(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return util.ErrTestNotFound
	}
	return err
}

func (s *MockTestService) CreateTest(ctx context.Context, req MockTestReq) (*model.MockTest, error) {
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrInvalidInput)
	}
	if req.ExamID == nil || *req.ExamID == "" {
		return nil, fmt.Errorf("%w: examId is required", util.ErrInvalidInput)
	}
	if req.Duration == nil || *req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", util.ErrInvalidInput)
	}

	test := &model.MockTest{
		Title:    strings.TrimSpace(*req.Title),
		ExamID:   *req.ExamID,
		Duration: *req.Duration,
		IsActive: true,
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.IsActive != nil {
		test.IsActive = *req.IsActive
	}

	if err := s.Repo.CreateTest(ctx, test); err != nil {
		return nil, err
	}
	logger.Log.Info("mock test created", zap.String("testId", test.ID), zap.String("examId", test.ExamID))
	return test, nil
}

func (s *MockTestService) UpdateTest(ctx context.Context, testID string, req MockTestReq) (*model.MockTest, error) {
	test, err := s.Repo.FindTestByID(ctx, testID)
	if err != nil {
		return nil, testLookupError(err)
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title is required", util.ErrInvalidInput)
		}
		test.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.ExamID != nil && *req.ExamID != "" {
		test.ExamID = *req.ExamID
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive", util.ErrInvalidInput)
		}
		test.Duration = *req.Duration
	}
	if req.IsActive != nil {
		test.IsActive = *req.IsActive
	}

	if err := s.Repo.UpdateTest(ctx, test); err != nil {
		return nil, testLookupError(err)
	}
	return test, nil
}

func (s *MockTestService) GetTest(ctx context.Context, testID string) (*model.MockTest, error) {
	test, err := s.Repo.FindTestByID(ctx, testID)
	if err != nil {
		return nil, testLookupError(err)
	}
	return test, nil
}

// ListTests 学生端只看到已上架的试卷
func (s *MockTestService) ListTests(ctx context.Context, examID string, includeInactive bool) ([]model.MockTest, error) {
	return s.Repo.ListTests(ctx, examID, !includeInactive)
}

// AddQuestion 新增题目并同步试卷的题目数与总分
func (s *MockTestService) AddQuestion(ctx context.Context, testID string, req QuestionReq) (*model.Question, error) {
	test, err := s.Repo.FindTestByID(ctx, testID)
	if err != nil {
		return nil, testLookupError(err)
	}

	option, err := model.ParseOption(req.CorrectOption)
	if err != nil {
		return nil, util.ErrInvalidOption
	}
	if req.Marks <= 0 {
		return nil, fmt.Errorf("%w: marks must be positive", util.ErrInvalidInput)
	}

	q := &model.Question{
		TestID:        test.ID,
		Question:      req.Question,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectOption: option,
		Marks:         req.Marks,
	}
	if err := s.Repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}

	test.TotalQuestions++
	test.TotalMarks += q.Marks
	if err := s.Repo.UpdateTest(ctx, test); err != nil {
		logger.Log.Error("failed to update mock test totals",
			zap.String("testId", test.ID), zap.String("questionId", q.ID), zap.Error(err))
		return nil, err
	}
	return q, nil
}

// ListQuestions 管理端使用，包含标准答案
func (s *MockTestService) ListQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	if _, err := s.Repo.FindTestByID(ctx, testID); err != nil {
		return nil, testLookupError(err)
	}
	return s.Repo.ListQuestions(ctx, testID)
}
