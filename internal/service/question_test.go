package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuestionOptions(t *testing.T) {
	tests := []struct {
		name       string
		qType      string
		options    []string
		answer     string
		wantOpts   model.StringArray
		wantAnswer string
		wantErr    bool
	}{
		{"mcq", model.QuestionMCQ, []string{"A. red", "B. blue", ""}, "b", model.StringArray{"red", "blue"}, "B", false},
		{"mcq out of range", model.QuestionMCQ, []string{"red", "blue"}, "C", nil, "", true},
		{"mcq one option", model.QuestionMCQ, []string{"red"}, "A", nil, "", true},
		{"multiple sorted", model.QuestionMultiple, []string{"a", "b", "c"}, "C,A", model.StringArray{"a", "b", "c"}, "AC", false},
		{"multiple empty", model.QuestionMultiple, []string{"a", "b"}, "", nil, "", true},
		{"true false word", model.QuestionTrueFalse, nil, "false", trueFalseOptions, "B", false},
		{"true false letter", model.QuestionTrueFalse, []string{"x"}, "A", trueFalseOptions, "A", false},
		{"true false invalid", model.QuestionTrueFalse, nil, "maybe", nil, "", true},
		{"fill in blank", model.QuestionFillInBlank, []string{"ignored"}, " Colombo ", nil, "Colombo", false},
		{"fill in blank empty", model.QuestionFillInBlank, nil, " ", nil, "", true},
		{"essay", model.QuestionEssay, nil, "", nil, "", false},
		{"unknown", "oral", nil, "", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, answer, err := validateQuestionOptions(tt.qType, tt.options, tt.answer)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOpts, opts)
			assert.Equal(t, tt.wantAnswer, answer)
		})
	}
}

func TestQuestionBulkAddRollsBack(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	exam, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)

	_, err = Question.BulkAdd(admin, exam.ID, []types.QuestionRequest{mcq(1, "A"), {Type: model.QuestionMCQ, Question: "no points", Options: []string{"a", "b"}, CorrectAnswer: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "第2题")

	questions, err := Question.List(exam.ID)
	require.NoError(t, err)
	assert.Empty(t, questions)

	created, err := Question.BulkAdd(admin, exam.ID, []types.QuestionRequest{mcq(1, "A"), mcq(1, "B")})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 1, created[0].Position)
	assert.Equal(t, 2, created[1].Position)
}

func TestQuestionSectionMustBelongToExam(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")

	first, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)
	sections, err := Section.BulkCreate(admin, first.ID, []types.SectionRequest{{Title: "Only"}})
	require.NoError(t, err)

	second, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)

	req := mcq(1, "A")
	req.SectionID = &sections[0].ID
	_, err = Question.Add(admin, second.ID, req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionUpdateReorderDelete(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	teacher := createUser(t, "teacher", model.RoleTeacher, "")

	exam, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)
	created, err := Question.BulkAdd(admin, exam.ID, []types.QuestionRequest{mcq(1, "A"), mcq(2, "B")})
	require.NoError(t, err)

	update := mcq(3, "C")
	update.Question = "3 + 1 = ?"
	q, err := Question.Update(admin, created[0].ID, update)
	require.NoError(t, err)
	assert.Equal(t, "3 + 1 = ?", q.Question)
	assert.Equal(t, 3.0, q.Points)
	assert.Equal(t, 1, q.Position)

	_, err = Question.Update(teacher, created[0].ID, update)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, Question.Reorder(admin, exam.ID, []types.ReorderItem{
		{ID: created[0].ID, Position: 2},
		{ID: created[1].ID, Position: 1},
	}))
	questions, err := Question.List(exam.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, created[1].ID, questions[0].ID)

	err = Question.Reorder(admin, exam.ID, []types.ReorderItem{{ID: 9999, Position: 1}})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Question.Delete(admin, created[0].ID))
	questions, err = Question.List(exam.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestSectionLifecycle(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	exam, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)

	sections, err := Section.BulkCreate(admin, exam.ID, []types.SectionRequest{
		{Title: "Part A", Questions: []types.QuestionRequest{mcq(1, "A")}},
		{Title: "Part B"},
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, 1, sections[0].Position)
	assert.Equal(t, 2, sections[1].Position)

	groups, err := Section.BulkCreateGroups(admin, exam.ID, sections[1].ID, []types.GroupRequest{
		{Title: "G1", Questions: []types.QuestionRequest{mcq(1, "B")}},
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)

	title := "Part B (revised)"
	section, err := Section.Update(admin, exam.ID, sections[1].ID, types.UpdateSectionRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, section.Title)

	require.NoError(t, Section.Delete(admin, exam.ID, sections[1].ID))
	listed, err := Section.List(admin, exam.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// 题目保留，但不再属于已删除的大题
	questions, err := Question.List(exam.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	for _, q := range questions {
		if q.Question == "2 + 2 = ?" && q.CorrectAnswer == "B" {
			assert.Nil(t, q.SectionID)
			assert.Nil(t, q.GroupID)
		}
	}
}

func TestQuestionCSVRoundTrip(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")

	source, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)
	_, err = Question.BulkAdd(admin, source.ID, []types.QuestionRequest{
		mcq(2, "B"),
		{Type: model.QuestionFillInBlank, Question: "Capital of Sri Lanka?", CorrectAnswer: "Colombo|Sri Jayawardenepura Kotte", Points: 3},
		essay(5),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Question.ExportCSV(admin, source.ID, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))

	target, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)

	result, err := Question.ImportCSV(admin, target.ID, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, result.ImportCount)
	assert.Zero(t, result.ErrorCount)

	imported, err := Question.List(target.ID)
	require.NoError(t, err)
	require.Len(t, imported, 3)
	assert.Equal(t, model.StringArray{"3", "4", "5"}, imported[0].Options)
	assert.Equal(t, "Colombo|Sri Jayawardenepura Kotte", imported[1].CorrectAnswer)
	assert.Equal(t, model.QuestionEssay, imported[2].Type)
}

func TestQuestionCSVImportErrors(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	exam, err := Exam.Create(admin, examRequest(time.Now()))
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("ID,题目类型,题目内容,选项,答案,分值,大题ID,部分,解析,图片\n")
	b.WriteString(`,mcq,ok,"[""a"",""b""]",A,1,,1,,` + "\n")
	b.WriteString(`,oral,bad type,,,1` + "\n")
	b.WriteString(`,mcq,bad points,"[""a"",""b""]",A,x` + "\n")
	b.WriteString(`,mcq,bad options,[a,A,1` + "\n")
	b.WriteString(`,mcq,missing section,"[""a"",""b""]",A,1,42` + "\n")
	for i := 0; i < 8; i++ {
		b.WriteString("short\n")
	}

	result, err := Question.ImportCSV(admin, exam.ID, strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ImportCount)
	assert.Equal(t, 12, result.ErrorCount)
	assert.Len(t, result.Errors, 11)
	assert.Equal(t, "...", result.Errors[10])
	assert.True(t, strings.HasPrefix(result.Errors[0], "第3行"))

	questions, err := Question.List(exam.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}
