package model

import (
	"fmt"
	"mocktest_backend/pkg/docstore"
)

// Option 选项字母，空值表示未作答
type Option string

const (
	OptionNone Option = ""
	OptionA    Option = "A"
	OptionB    Option = "B"
	OptionC    Option = "C"
	OptionD    Option = "D"
)

var Options = []Option{OptionA, OptionB, OptionC, OptionD}

func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// ParseOption 只接受大写字母 A-D
func ParseOption(s string) (Option, error) {
	o := Option(s)
	if !o.Valid() {
		return OptionNone, fmt.Errorf("invalid option %q", s)
	}
	return o, nil
}

type Question struct {
	ID            string `json:"id" validate:"required"`
	TestID        string `json:"testId" validate:"required"`
	Question      string `json:"question" validate:"required"`
	OptionA       string `json:"optionA" validate:"required"`
	OptionB       string `json:"optionB" validate:"required"`
	OptionC       string `json:"optionC" validate:"required"`
	OptionD       string `json:"optionD" validate:"required"`
	CorrectOption Option `json:"correctOption" validate:"required,oneof=A B C D"`
	Marks         int    `json:"marks" validate:"gt=0"`
}

func (q *Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

func (q *Question) Fields() map[string]any {
	return map[string]any{
		"testId":        q.TestID,
		"question":      q.Question,
		"optionA":       q.OptionA,
		"optionB":       q.OptionB,
		"optionC":       q.OptionC,
		"optionD":       q.OptionD,
		"correctOption": string(q.CorrectOption),
		"marks":         q.Marks,
	}
}

func DecodeQuestion(rec *docstore.Record) (*Question, error) {
	var q Question
	if err := decodeRecord(rec, &q, func(id string) { q.ID = id }); err != nil {
		return nil, err
	}
	return &q, nil
}
