package service

import "mocktest_backend/internal/model"

// Score 按数组位置配对题目与作答，返回得分与总分。
// 调用方保证两者按相同顺序构造。
func Score(questions []model.Question, answers []model.Answer) (marksObtained, totalMarks int) {
	for i := range questions {
		totalMarks += questions[i].Marks
		if i < len(answers) && IsCorrect(&questions[i], answers[i]) {
			marksObtained += questions[i].Marks
		}
	}
	return marksObtained, totalMarks
}

// IsCorrect 选项字母与标准答案完全一致（区分大小写），未作答永远不算对
func IsCorrect(q *model.Question, a model.Answer) bool {
	return a.Answered() && a.Selected == q.CorrectOption
}
