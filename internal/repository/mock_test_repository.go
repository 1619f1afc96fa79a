package repository

import (
	"context"
	"mocktest_backend/internal/model"
	"mocktest_backend/pkg/docstore"
)

type MockTestRepository struct {
	Store docstore.Store
}

func NewMockTestRepository(store docstore.Store) *MockTestRepository {
	return &MockTestRepository{Store: store}
}

func (r *MockTestRepository) CreateTest(ctx context.Context, test *model.MockTest) error {
	if test.ID == "" {
		test.ID = model.GenerateUUID()
	}
	_, err := r.Store.Create(ctx, model.CollectionTests, test.ID, test.Fields())
	return err
}

func (r *MockTestRepository) FindTestByID(ctx context.Context, id string) (*model.MockTest, error) {
	rec, err := r.Store.Get(ctx, model.CollectionTests, id)
	if err != nil {
		return nil, err
	}
	return model.DecodeMockTest(rec)
}

func (r *MockTestRepository) UpdateTest(ctx context.Context, test *model.MockTest) error {
	_, err := r.Store.Update(ctx, model.CollectionTests, test.ID, test.Fields())
	return err
}

// IncrementViewCount 只写 viewCount 字段
func (r *MockTestRepository) IncrementViewCount(ctx context.Context, test *model.MockTest) error {
	_, err := r.Store.Update(ctx, model.CollectionTests, test.ID, map[string]any{
		"viewCount": test.ViewCount + 1,
	})
	return err
}

func (r *MockTestRepository) ListTests(ctx context.Context, examID string, activeOnly bool) ([]model.MockTest, error) {
	var filters []docstore.Filter
	if examID != "" {
		filters = append(filters, docstore.Eq("examId", examID))
	}
	if activeOnly {
		filters = append(filters, docstore.Eq("isActive", true))
	}

	recs, err := r.Store.List(ctx, model.CollectionTests, docstore.Query{Filters: filters})
	if err != nil {
		return nil, err
	}

	tests := make([]model.MockTest, 0, len(recs))
	for i := range recs {
		t, err := model.DecodeMockTest(&recs[i])
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, nil
}

func (r *MockTestRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	if q.ID == "" {
		q.ID = model.GenerateUUID()
	}
	_, err := r.Store.Create(ctx, model.CollectionQuestions, q.ID, q.Fields())
	return err
}

// ListQuestions 按存储返回的顺序
func (r *MockTestRepository) ListQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	recs, err := r.Store.List(ctx, model.CollectionQuestions, docstore.Query{
		Filters: []docstore.Filter{docstore.Eq("testId", testID)},
	})
	if err != nil {
		return nil, err
	}

	qs := make([]model.Question, 0, len(recs))
	for i := range recs {
		q, err := model.DecodeQuestion(&recs[i])
		if err != nil {
			return nil, err
		}
		qs = append(qs, *q)
	}
	return qs, nil
}
