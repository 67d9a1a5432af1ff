package service

import (
	"testing"

	"exam-portal/internal/model"
	"exam-portal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitAnswers(t *testing.T, student *model.User, examID uint, answers ...types.SubmitAnswerRequest) {
	t.Helper()
	started, err := Attempt.Start(student, examID, types.StartAttemptRequest{})
	require.NoError(t, err)
	_, err = Attempt.Submit(student, started.Attempt.ID, types.SubmitAttemptRequest{Answers: answers})
	require.NoError(t, err)
}

func TestPracticeWrongQuestions(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	student := createUser(t, "student", model.RoleStudent, "")

	exam, questions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.ShowResults = true
	},
		mcq(2, "B"),
		mcq(3, "A"),
		types.QuestionRequest{Type: model.QuestionTrueFalse, Question: "Sky is blue", CorrectAnswer: "true", Points: 2},
		types.QuestionRequest{Type: model.QuestionFillInBlank, Question: "Capital", CorrectAnswer: "Colombo", Points: 3, Explanation: "Sri Jayawardenepura Kotte is the legislative capital"},
	)
	hidden, hiddenQuestions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.Title = "Hidden Results"
	}, mcq(10, "B"))

	submitAnswers(t, student, exam.ID,
		types.SubmitAnswerRequest{QuestionID: questions[0].ID, Answer: "A"},
		types.SubmitAnswerRequest{QuestionID: questions[1].ID, Answer: "A"},
		types.SubmitAnswerRequest{QuestionID: questions[2].ID, Answer: "false"},
		types.SubmitAnswerRequest{QuestionID: questions[3].ID, Answer: "Kandy"},
	)
	submitAnswers(t, student, hidden.ID, types.SubmitAnswerRequest{QuestionID: hiddenQuestions[0].ID, Answer: "C"})

	stats, total, err := Practice.GetWrongQuestionsStats(student)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, stats, 1, "results not shown for the second exam")
	assert.Equal(t, WrongQuestionExam{
		ExamID: exam.ID, ExamTitle: exam.Title, Subject: exam.Subject,
		Single: 1, Judge: 1, Blank: 1, Total: 3,
	}, stats[0])

	var seen []uint
	for page := 1; page <= 2; page++ {
		details, count, err := Practice.GetWrongQuestions(student, types.WrongQuestionQuery{PageQuery: types.PageQuery{Page: page, Size: 2}})
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
		for _, d := range details {
			seen = append(seen, d.QuestionID)
			if d.QuestionID == questions[3].ID {
				assert.Equal(t, "Kandy", d.YourAnswer)
				assert.Equal(t, "Colombo", d.CorrectAnswer)
				assert.Contains(t, d.Explanation, "Kotte")
				require.NotNil(t, d.PointsAwarded)
				assert.Zero(t, *d.PointsAwarded)
			}
		}
	}
	assert.ElementsMatch(t, []uint{questions[0].ID, questions[2].ID, questions[3].ID}, seen)

	details, count, err := Practice.GetWrongQuestions(student, types.WrongQuestionQuery{PageQuery: types.PageQuery{Page: 3, Size: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.Empty(t, details)

	details, count, err = Practice.GetWrongQuestions(student, types.WrongQuestionQuery{ExamID: hidden.ID})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, details)
}

func TestPracticeSkipsUngradedAttempts(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	student := createUser(t, "student", model.RoleStudent, "")

	exam, questions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.ShowResults = true
	}, mcq(5, "B"), essay(5))

	submitAnswers(t, student, exam.ID,
		types.SubmitAnswerRequest{QuestionID: questions[0].ID, Answer: "C"},
		types.SubmitAnswerRequest{QuestionID: questions[1].ID, Answer: "a^2 + b^2 = c^2"},
	)

	// 主观题未评分，答卷还不是 graded
	stats, total, err := Practice.GetWrongQuestionsStats(student)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, stats)
}
