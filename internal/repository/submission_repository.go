package repository

import (
	"context"
	"errors"
	"fmt"
	"mocktest_backend/internal/model"
	"mocktest_backend/pkg/docstore"
	"sort"
)

type SubmissionRepository struct {
	Store docstore.Store
}

func NewSubmissionRepository(store docstore.Store) *SubmissionRepository {
	return &SubmissionRepository{Store: store}
}

// Create 写入一次提交。ID 由调用方生成并在重试间保持不变，
// 因此 ErrAlreadyExists 且内容属于同一作答时视为上次写入已成功。
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	if s.ID == "" {
		s.ID = model.GenerateUUID()
	}

	_, err := r.Store.Create(ctx, model.CollectionSubmissions, s.ID, s.Fields())
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		return err
	}

	existing, getErr := r.FindByID(ctx, s.ID)
	if getErr != nil {
		return err
	}
	if existing.TestID != s.TestID || existing.UserID != s.UserID {
		return fmt.Errorf("submission %s already exists for another attempt: %w", s.ID, err)
	}
	return nil
}

func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	rec, err := r.Store.Get(ctx, model.CollectionSubmissions, id)
	if err != nil {
		return nil, err
	}
	return model.DecodeSubmission(rec)
}

func (r *SubmissionRepository) list(ctx context.Context, filters ...docstore.Filter) ([]model.Submission, error) {
	recs, err := r.Store.List(ctx, model.CollectionSubmissions, docstore.Query{Filters: filters})
	if err != nil {
		return nil, err
	}

	subs := make([]model.Submission, 0, len(recs))
	for i := range recs {
		s, err := model.DecodeSubmission(&recs[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}

	// 最新的在前
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
	return subs, nil
}

func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	return r.list(ctx, docstore.Eq("userId", userID))
}

func (r *SubmissionRepository) ListByTest(ctx context.Context, testID string) ([]model.Submission, error) {
	return r.list(ctx, docstore.Eq("testId", testID))
}

// FindLatestByTestAndUser 同一用户多次作答时取最近一次
func (r *SubmissionRepository) FindLatestByTestAndUser(ctx context.Context, testID, userID string) (*model.Submission, error) {
	subs, err := r.list(ctx, docstore.Eq("testId", testID), docstore.Eq("userId", userID))
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, docstore.ErrNotFound
	}
	return &subs[0], nil
}
