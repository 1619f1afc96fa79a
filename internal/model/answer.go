package model

import (
	"encoding/json"
	"fmt"
)

// Answer 作答期间某题的当前选择，Selected 为空表示未作答
type Answer struct {
	QuestionID string
	Selected   Option
}

func (a Answer) Answered() bool {
	return a.Selected != OptionNone
}

// answerEntry 持久化格式：{questionId, selectedOption|null} 的有序数组
type answerEntry struct {
	QuestionID     string  `json:"questionId"`
	SelectedOption *string `json:"selectedOption"`
}

func EncodeAnswers(answers []Answer) (string, error) {
	entries := make([]answerEntry, len(answers))
	for i, a := range answers {
		if a.QuestionID == "" {
			return "", fmt.Errorf("answer %d: missing question id", i)
		}
		entries[i].QuestionID = a.QuestionID
		if a.Answered() {
			if !a.Selected.Valid() {
				return "", fmt.Errorf("answer %d: invalid option %q", i, a.Selected)
			}
			s := string(a.Selected)
			entries[i].SelectedOption = &s
		}
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func DecodeAnswers(blob string) ([]Answer, error) {
	var entries []answerEntry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, fmt.Errorf("%w: answers: %v", ErrMalformedRecord, err)
	}

	answers := make([]Answer, len(entries))
	for i, e := range entries {
		if e.QuestionID == "" {
			return nil, fmt.Errorf("%w: answer %d: missing question id", ErrMalformedRecord, i)
		}
		answers[i].QuestionID = e.QuestionID
		if e.SelectedOption != nil {
			o, err := ParseOption(*e.SelectedOption)
			if err != nil {
				return nil, fmt.Errorf("%w: answer %d: %v", ErrMalformedRecord, i, err)
			}
			answers[i].Selected = o
		}
	}
	return answers, nil
}
