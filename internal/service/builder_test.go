package service

import (
	"encoding/json"
	"testing"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builderRequest(key string) types.BuilderRequest {
	return types.BuilderRequest{
		DraftKey: key,
		Exam:     examRequest(time.Now()),
		Sections: []types.SectionRequest{
			{
				Title:               "Section A",
				DefaultQuestionType: model.QuestionMCQ,
				Questions:           []types.QuestionRequest{mcq(2, "A")},
				Groups: []types.GroupRequest{
					{Title: "Passage 1", Questions: []types.QuestionRequest{mcq(2, "B"), mcq(2, "C")}},
				},
			},
			{Title: "Section B", ExamPart: 2, Questions: []types.QuestionRequest{essay(2)}},
		},
		Questions: []types.QuestionRequest{mcq(2, "A")},
	}
}

func TestBuilderSubmit(t *testing.T) {
	setupDB(t)
	teacher := createUser(t, "teacher", model.RoleTeacher, "")

	key := Draft.NewKey()
	_, err := Draft.Save(teacher, key, types.SaveDraftRequest{Payload: json.RawMessage(`{"step":4}`)})
	require.NoError(t, err)

	result, err := Builder.Submit(teacher, builderRequest(key))
	require.NoError(t, err)
	assert.Equal(t, 2, result.SectionCount)
	assert.Equal(t, 1, result.GroupCount)
	assert.Equal(t, 5, result.QuestionCount)
	assert.Empty(t, result.Warnings)

	detail, err := Exam.Get(teacher, result.ExamID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, detail.ApprovalStatus)
	assert.True(t, detail.UseHierarchicalStructure)
	assert.EqualValues(t, 5, detail.QuestionCount)

	_, err = Draft.Get(teacher, key)
	assert.ErrorIs(t, err, ErrNotFound, "draft removed after submission")
}

func TestBuilderSubmitIsAtomic(t *testing.T) {
	setupDB(t)
	teacher := createUser(t, "teacher", model.RoleTeacher, "")

	key := Draft.NewKey()
	_, err := Draft.Save(teacher, key, types.SaveDraftRequest{Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	req := builderRequest(key)
	req.Questions = append(req.Questions, types.QuestionRequest{Type: model.QuestionMCQ, Question: "broken", Points: 1})

	_, err = Builder.Submit(teacher, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, total, err := Exam.List(teacher, types.ExamQuery{})
	require.NoError(t, err)
	assert.Zero(t, total, "no partial exam left behind")

	_, err = Draft.Get(teacher, key)
	assert.NoError(t, err, "draft kept for retry")
}

func TestBuilderSubmitWarnings(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")

	req := builderRequest("")
	req.Questions = nil
	result, err := Builder.Submit(admin, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"题目总分(8)与考试总分(10)不一致"}, result.Warnings)

	student := createUser(t, "student", model.RoleStudent, "")
	_, err = Builder.Submit(student, builderRequest(""))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBuilderSectionsFromJSON(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")

	body := `{
		"exam": {
			"title": "Geography", "duration": 30, "total_marks": 4, "passing_marks": 2,
			"start_time": "2030-01-01T09:00:00Z", "end_time": "2030-01-01T10:00:00Z",
			"sections": [{"title": "Maps", "questions": [{"type": "true_false", "question": "Kandy is inland", "correct_answer": "true", "points": 2}]}]
		},
		"sections": [{"title": "Climate", "questions": [{"type": "true_false", "question": "Monsoons bring rain", "correct_answer": "true", "points": 2}]}]
	}`
	var req types.BuilderRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.Sections, 1)

	result, err := Builder.Submit(admin, req)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SectionCount)
	assert.Equal(t, 2, result.QuestionCount)

	sections, err := Section.List(admin, result.ExamID)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Maps", sections[0].Title)
	assert.Equal(t, "Climate", sections[1].Title)
}
