package model

import (
	"mocktest_backend/pkg/docstore"
	"time"
)

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// Submission 一次已完成作答的持久化结果，只写一次
type Submission struct {
	ID            string    `json:"id" validate:"required"`
	TestID        string    `json:"testId" validate:"required"`
	UserID        string    `json:"userId" validate:"required"`
	UserName      string    `json:"userName"`
	SubmittedAt   time.Time `json:"submittedAt" validate:"required"`
	TotalMarks    int       `json:"totalMarks" validate:"gte=0"`
	MarksObtained int       `json:"marksObtained" validate:"gte=0,ltefield=TotalMarks"`
	TimeSpent     int       `json:"timeSpent" validate:"gte=0"` // 秒
	Trigger       string    `json:"trigger"`
	Answers       string    `json:"answers" validate:"required"`
}

func (s *Submission) Fields() map[string]any {
	return map[string]any{
		"testId":        s.TestID,
		"userId":        s.UserID,
		"userName":      s.UserName,
		"submittedAt":   s.SubmittedAt.UTC().Format(time.RFC3339Nano),
		"totalMarks":    s.TotalMarks,
		"marksObtained": s.MarksObtained,
		"timeSpent":     s.TimeSpent,
		"trigger":       s.Trigger,
		"answers":       s.Answers,
	}
}

func DecodeSubmission(rec *docstore.Record) (*Submission, error) {
	var s Submission
	if err := decodeRecord(rec, &s, func(id string) { s.ID = id }); err != nil {
		return nil, err
	}
	return &s, nil
}
