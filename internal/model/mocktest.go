package model

import "mocktest_backend/pkg/docstore"

// MockTest 一套模拟试卷，作答期间只读
type MockTest struct {
	ID             string `json:"id" validate:"required"`
	Title          string `json:"title" validate:"required"`
	Description    string `json:"description"`
	ExamID         string `json:"examId" validate:"required"`
	Duration       int    `json:"duration" validate:"gt=0"` // 分钟
	TotalQuestions int    `json:"totalQuestions" validate:"gte=0"`
	TotalMarks     int    `json:"totalMarks" validate:"gte=0"`
	IsActive       bool   `json:"isActive"`
	ViewCount      int    `json:"viewCount" validate:"gte=0"`
}

// DurationSeconds 倒计时初始值
func (t *MockTest) DurationSeconds() int {
	return t.Duration * 60
}

func (t *MockTest) Fields() map[string]any {
	return map[string]any{
		"title":          t.Title,
		"description":    t.Description,
		"examId":         t.ExamID,
		"duration":       t.Duration,
		"totalQuestions": t.TotalQuestions,
		"totalMarks":     t.TotalMarks,
		"isActive":       t.IsActive,
		"viewCount":      t.ViewCount,
	}
}

func DecodeMockTest(rec *docstore.Record) (*MockTest, error) {
	var t MockTest
	if err := decodeRecord(rec, &t, func(id string) { t.ID = id }); err != nil {
		return nil, err
	}
	return &t, nil
}
