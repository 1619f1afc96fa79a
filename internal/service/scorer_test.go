package service

import (
	"mocktest_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	qs := []model.Question{
		{ID: "q1", CorrectOption: model.OptionA, Marks: 2},
		{ID: "q2", CorrectOption: model.OptionB, Marks: 3},
		{ID: "q3", CorrectOption: model.OptionC, Marks: 5},
	}

	tests := []struct {
		name     string
		answers  []model.Answer
		obtained int
	}{
		{"all unanswered", []model.Answer{{QuestionID: "q1"}, {QuestionID: "q2"}, {QuestionID: "q3"}}, 0},
		{"all correct", []model.Answer{{QuestionID: "q1", Selected: model.OptionA}, {QuestionID: "q2", Selected: model.OptionB}, {QuestionID: "q3", Selected: model.OptionC}}, 10},
		{"mixed", []model.Answer{{QuestionID: "q1", Selected: model.OptionA}, {QuestionID: "q2", Selected: model.OptionC}, {QuestionID: "q3", Selected: model.OptionNone}}, 2},
		{"all wrong", []model.Answer{{QuestionID: "q1", Selected: model.OptionD}, {QuestionID: "q2", Selected: model.OptionD}, {QuestionID: "q3", Selected: model.OptionD}}, 0},
		{"lowercase never matches", []model.Answer{{QuestionID: "q1", Selected: "a"}, {QuestionID: "q2", Selected: "b"}, {QuestionID: "q3", Selected: "c"}}, 0},
		{"short answer list", []model.Answer{{QuestionID: "q1", Selected: model.OptionA}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obtained, total := Score(qs, tt.answers)
			assert.Equal(t, tt.obtained, obtained)
			assert.Equal(t, 10, total)
			assert.LessOrEqual(t, obtained, total)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	qs := []model.Question{{ID: "q1", CorrectOption: model.OptionA, Marks: 4}}
	answers := []model.Answer{{QuestionID: "q1", Selected: model.OptionA}}

	o1, t1 := Score(qs, answers)
	o2, t2 := Score(qs, answers)
	assert.Equal(t, o1, o2)
	assert.Equal(t, t1, t2)
	assert.Equal(t, model.OptionA, answers[0].Selected)
}

func TestScoreEmpty(t *testing.T) {
	obtained, total := Score(nil, nil)
	assert.Zero(t, obtained)
	assert.Zero(t, total)
}

func TestIsCorrect(t *testing.T) {
	q := &model.Question{CorrectOption: model.OptionB}

	assert.True(t, IsCorrect(q, model.Answer{Selected: model.OptionB}))
	assert.False(t, IsCorrect(q, model.Answer{Selected: model.OptionA}))
	assert.False(t, IsCorrect(q, model.Answer{}))
	assert.False(t, IsCorrect(&model.Question{}, model.Answer{}), "unanswered never matches")
}
