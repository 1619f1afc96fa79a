package model

import (
	"mocktest_backend/pkg/docstore"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAnswers(t *testing.T) {
	blob, err := EncodeAnswers([]Answer{
		{QuestionID: "q1", Selected: OptionB},
		{QuestionID: "q2"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"questionId":"q1","selectedOption":"B"},{"questionId":"q2","selectedOption":null}]`, blob)

	answers, err := DecodeAnswers(blob)
	require.NoError(t, err)
	assert.Equal(t, []Answer{{QuestionID: "q1", Selected: OptionB}, {QuestionID: "q2"}}, answers)
}

func TestEncodeAnswersRejectsBadInput(t *testing.T) {
	_, err := EncodeAnswers([]Answer{{Selected: OptionA}})
	assert.Error(t, err)
	_, err = EncodeAnswers([]Answer{{QuestionID: "q1", Selected: "E"}})
	assert.Error(t, err)
}

func TestDecodeAnswersMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing id":     `[{"selectedOption":"A"}]`,
		"lowercase":      `[{"questionId":"q1","selectedOption":"a"}]`,
		"unknown letter": `[{"questionId":"q1","selectedOption":"E"}]`,
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeAnswers(blob)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestParseOption(t *testing.T) {
	for _, o := range Options {
		got, err := ParseOption(string(o))
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	for _, s := range []string{"", "a", "E", "AB"} {
		_, err := ParseOption(s)
		assert.Error(t, err, s)
	}
}

func TestDecodeQuestion(t *testing.T) {
	q := &Question{
		TestID: "t1", Question: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6",
		CorrectOption: OptionB, Marks: 2,
	}
	// 经过 JSON 的存储返回的数字是 float64
	fields := q.Fields()
	fields["marks"] = float64(2)

	got, err := DecodeQuestion(&docstore.Record{ID: "q1", Collection: CollectionQuestions, Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, "q1", got.ID)
	assert.Equal(t, OptionB, got.CorrectOption)
	assert.Equal(t, 2, got.Marks)
	assert.Equal(t, "4", got.OptionText(got.CorrectOption))

	fields["correctOption"] = "b"
	_, err = DecodeQuestion(&docstore.Record{ID: "q1", Collection: CollectionQuestions, Fields: fields})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestDecodeMockTestMissingFields(t *testing.T) {
	_, err := DecodeMockTest(&docstore.Record{ID: "t1", Collection: CollectionTests, Fields: map[string]any{
		"title": "Mock",
	}})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	test, err := DecodeMockTest(&docstore.Record{ID: "t1", Collection: CollectionTests, Fields: map[string]any{
		"title": "Mock", "examId": "e1", "duration": 30, "isActive": true,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1800, test.DurationSeconds())
}

func TestDecodeSubmissionTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s := &Submission{
		TestID: "t1", UserID: "u1", SubmittedAt: at, TotalMarks: 10, MarksObtained: 5,
		TimeSpent: 30, Trigger: TriggerAuto, Answers: "[]",
	}

	got, err := DecodeSubmission(&docstore.Record{ID: "s1", Collection: CollectionSubmissions, Fields: s.Fields()})
	require.NoError(t, err)
	assert.True(t, at.Equal(got.SubmittedAt))
	assert.Equal(t, TriggerAuto, got.Trigger)

	bad := s.Fields()
	bad["marksObtained"] = 11
	_, err = DecodeSubmission(&docstore.Record{ID: "s1", Collection: CollectionSubmissions, Fields: bad})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
