package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rankRow struct {
	Student       string
	Score         float64
	IslandRank    int
	DistrictRank  int
	TotalDistrict int
	StudentType   string
}

func rankRows(rankings []model.ExamRanking) []rankRow {
	rows := make([]rankRow, 0, len(rankings))
	for _, r := range rankings {
		row := rankRow{
			Score:       r.Score,
			IslandRank:  r.IslandRank,
			StudentType: r.StudentType,
		}
		if r.Student != nil {
			row.Student = r.Student.Username
		}
		if r.DistrictRank != nil {
			row.DistrictRank = *r.DistrictRank
			row.TotalDistrict = *r.TotalDistrict
		}
		rows = append(rows, row)
	}
	return rows
}

// sitExam 学生作答单选题，answers 中 "A" 为正确答案
func sitExam(t *testing.T, exam *model.Exam, questions []model.ExamQuestion, student *model.User, answers ...string) {
	t.Helper()
	started, err := Attempt.Start(student, exam.ID, types.StartAttemptRequest{})
	require.NoError(t, err)

	req := types.SubmitAttemptRequest{}
	for i, a := range answers {
		req.Answers = append(req.Answers, types.SubmitAnswerRequest{QuestionID: questions[i].ID, Answer: a})
	}
	_, err = Attempt.Submit(student, started.Attempt.ID, req)
	require.NoError(t, err)
}

func TestRankingCalculate(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")

	exam, questions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.EnableRanking = true
		r.AttemptsAllowed = 2
	}, mcq(5, "A"), mcq(5, "A"))

	kandy1 := createUser(t, "kandy1", model.RoleStudent, "Kandy")
	kandy2 := createUser(t, "kandy2", model.RoleStudent, "Kandy")
	galle := createUser(t, "galle", model.RoleStudent, "Galle")
	external := createUser(t, "external", model.RoleStudent, "")

	sitExam(t, exam, questions, kandy1, "A", "B")
	sitExam(t, exam, questions, galle, "A", "A")
	sitExam(t, exam, questions, external, "A", "B")
	sitExam(t, exam, questions, kandy2, "B", "B")
	// 第二次作答成绩更好，排名取最好成绩
	sitExam(t, exam, questions, kandy2, "A", "A")

	rankings, err := Ranking.ExamRankings(admin, exam.ID, types.RankingQuery{})
	require.NoError(t, err)

	want := []rankRow{
		{Student: "galle", Score: 10, IslandRank: 1, DistrictRank: 1, TotalDistrict: 1, StudentType: model.StudentInternal},
		{Student: "kandy2", Score: 10, IslandRank: 2, DistrictRank: 1, TotalDistrict: 2, StudentType: model.StudentInternal},
		{Student: "kandy1", Score: 5, IslandRank: 3, DistrictRank: 2, TotalDistrict: 2, StudentType: model.StudentInternal},
		{Student: "external", Score: 5, IslandRank: 4, StudentType: model.StudentExternal},
	}
	if diff := cmp.Diff(want, rankRows(rankings)); diff != "" {
		t.Errorf("rankings mismatch (-want +got):\n%s", diff)
	}
	for _, r := range rankings {
		assert.Equal(t, 4, r.TotalIsland)
	}

	district, err := Ranking.ExamRankings(admin, exam.ID, types.RankingQuery{Level: "district", District: "Kandy"})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"kandy2", "kandy1"}, usernames(district)); diff != "" {
		t.Errorf("district rankings mismatch (-want +got):\n%s", diff)
	}

	externalOnly, err := Ranking.ExamRankings(admin, exam.ID, types.RankingQuery{StudentType: "external"})
	require.NoError(t, err)
	assert.Equal(t, []string{"external"}, usernames(externalOnly))

	n, err := Ranking.Calculate(admin, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func usernames(rankings []model.ExamRanking) []string {
	names := make([]string, 0, len(rankings))
	for _, r := range rankings {
		names = append(names, r.Student.Username)
	}
	return names
}

func TestRankingVisibilityForStudents(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	student := createUser(t, "student", model.RoleStudent, "Colombo")

	exam, questions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.EnableRanking = true
	}, mcq(10, "A"))
	sitExam(t, exam, questions, student, "A")

	_, err := Ranking.ExamRankings(student, exam.ID, types.RankingQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Exam.SetRankingVisibility(admin, exam.ID, true)
	require.NoError(t, err)

	other := createUser(t, "other", model.RoleStudent, "Galle")
	student.Email = "student@example.com"
	require.NoError(t, database.DB.Save(student).Error)

	rankings, err := Ranking.ExamRankings(other, exam.ID, types.RankingQuery{})
	require.NoError(t, err)
	require.Len(t, rankings, 1)
	assert.Equal(t, 1, rankings[0].IslandRank)
	assert.Equal(t, "student", rankings[0].StudentName)
	assert.Equal(t, "Colombo", rankings[0].District)
	assert.Nil(t, rankings[0].Student)

	data, err := json.Marshal(rankings)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "email")
	assert.NotContains(t, string(data), "student@example.com")
	assert.NotContains(t, string(data), `"role"`)

	staffView, err := Ranking.ExamRankings(admin, exam.ID, types.RankingQuery{})
	require.NoError(t, err)
	require.NotNil(t, staffView[0].Student)
	assert.Equal(t, "student@example.com", staffView[0].Student.Email)

	noRanking, _ := publishedExam(t, admin, nil, mcq(10, "A"))
	_, err = Ranking.Calculate(admin, noRanking.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRankingExportCSV(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	student := createUser(t, "student", model.RoleStudent, "Jaffna")
	student.Nickname = `Kumar "KK" Raj`
	require.NoError(t, database.DB.Save(student).Error)

	exam, questions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.EnableRanking = true
	}, mcq(10, "A"))
	sitExam(t, exam, questions, student, "A")

	var buf bytes.Buffer
	require.NoError(t, Ranking.ExportCSV(admin, exam.ID, types.RankingQuery{}, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"Rank","StudentId","StudentName","Score","Percentage","District","StudentType"`, lines[0])
	assert.Equal(t, `"1","`+uintString(student.ID)+`","Kumar ""KK"" Raj","10","100.00","Jaffna","INTERNAL"`, lines[1])
}

func TestRankingOverview(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	teacher := createUser(t, "teacher", model.RoleTeacher, "")

	maths, mathsQ := publishedExam(t, admin, nil, mcq(5, "A"), mcq(5, "A"))
	science, scienceQ := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.Subject = "Science"
	}, mcq(10, "A"))

	var students []*model.User
	for _, name := range []string{"amal", "bimal", "chamara"} {
		students = append(students, createUser(t, name, model.RoleStudent, "Kandy"))
	}
	sitExam(t, maths, mathsQ, students[0], "A", "B")
	sitExam(t, maths, mathsQ, students[1], "A", "A")
	sitExam(t, maths, mathsQ, students[2], "B", "B")
	sitExam(t, science, scienceQ, students[2], "A")

	overview, err := Ranking.Overview(admin, types.RankingOverviewQuery{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, overview, 2)
	assert.Equal(t, "Mathematics", overview[0].Subject)
	assert.Equal(t, "Science", overview[1].Subject)

	mathsRanks := overview[0]
	assert.EqualValues(t, 3, mathsRanks.Pagination.Total)
	require.Len(t, mathsRanks.Rankings, 2)
	assert.Equal(t, "bimal", mathsRanks.Rankings[0].StudentName)
	assert.Equal(t, 1, mathsRanks.Rankings[0].Rank)
	assert.Equal(t, "amal", mathsRanks.Rankings[1].StudentName)

	lastPage, err := Ranking.Overview(admin, types.RankingOverviewQuery{Subject: "Mathematics", PageSize: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, lastPage, 1)
	require.Len(t, lastPage[0].Rankings, 1)
	assert.Equal(t, 3, lastPage[0].Rankings[0].Rank)

	top, err := Ranking.Overview(admin, types.RankingOverviewQuery{Subject: "Mathematics", Limit: 2, Order: "asc"})
	require.NoError(t, err)
	require.Len(t, top[0].Rankings, 2)
	assert.EqualValues(t, 2, top[0].Pagination.Total)
	assert.Equal(t, "chamara", top[0].Rankings[0].StudentName)
	assert.Equal(t, 1, top[0].Rankings[0].Rank)
	assert.Equal(t, "amal", top[0].Rankings[1].StudentName)
	assert.Equal(t, 2, top[0].Rankings[1].Rank)

	own, err := Ranking.Overview(teacher, types.RankingOverviewQuery{})
	require.NoError(t, err)
	assert.Empty(t, own)
}

func TestStudentTypeFromDistrict(t *testing.T) {
	assert.Equal(t, model.StudentInternal, studentType(&model.User{District: "Matara"}))
	assert.Equal(t, model.StudentExternal, studentType(&model.User{}))
	assert.Equal(t, model.StudentExternal, studentType(nil))
}

func TestRankingsRecalculatedOnSubmit(t *testing.T) {
	setupDB(t)
	admin := createUser(t, "admin", model.RoleAdmin, "")
	first := createUser(t, "first", model.RoleStudent, "")
	second := createUser(t, "second", model.RoleStudent, "")

	exam, questions := publishedExam(t, admin, func(r *types.CreateExamRequest) {
		r.EnableRanking = true
	}, mcq(10, "A"))

	sitExam(t, exam, questions, first, "B")
	time.Sleep(time.Millisecond)
	sitExam(t, exam, questions, second, "B")

	rankings, err := Ranking.ExamRankings(admin, exam.ID, types.RankingQuery{})
	require.NoError(t, err)
	// 同分时先交卷者排名靠前
	assert.Equal(t, []string{"first", "second"}, usernames(rankings))
}
