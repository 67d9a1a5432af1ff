package service

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"gorm.io/gorm"
)

var Ranking = new(RankingService)

type RankingService struct{}

const (
	overviewDefaultLimit    = 100
	overviewDefaultPageSize = 10
)

var rankingCSVHeader = []string{"Rank", "StudentId", "StudentName", "Score", "Percentage", "District", "StudentType"}

func studentType(u *model.User) string {
	if u != nil && u.District != "" {
		return model.StudentInternal
	}
	return model.StudentExternal
}

// calculateRankings 在事务中重建考试排名，每个学生取最好的一次已评分答卷
func calculateRankings(tx *gorm.DB, exam *model.Exam) (int, error) {
	var attempts []model.ExamAttempt
	if err := tx.Preload("Student", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("exam_id = ? AND status = ?", exam.ID, model.AttemptGraded).
		Order("total_score DESC").Order("submitted_at ASC").Order("id ASC").
		Find(&attempts).Error; err != nil {
		return 0, err
	}

	now := timeNow()
	seen := make(map[uint]bool)
	rankings := make([]model.ExamRanking, 0, len(attempts))
	for _, a := range attempts {
		if seen[a.StudentID] {
			continue
		}
		seen[a.StudentID] = true

		r := model.ExamRanking{
			ExamID:       exam.ID,
			StudentID:    a.StudentID,
			AttemptID:    a.ID,
			Score:        a.TotalScore,
			Percentage:   a.Percentage,
			StudentType:  studentType(a.Student),
			IslandRank:   len(rankings) + 1,
			CalculatedAt: now,
		}
		if a.Student != nil {
			r.District = a.Student.District
		}
		rankings = append(rankings, r)
	}

	districtTotals := make(map[string]int)
	for _, r := range rankings {
		if r.District != "" {
			districtTotals[r.District]++
		}
	}
	districtNext := make(map[string]int)
	for i := range rankings {
		r := &rankings[i]
		r.TotalIsland = len(rankings)
		if r.District == "" {
			continue
		}
		districtNext[r.District]++
		rank, total := districtNext[r.District], districtTotals[r.District]
		r.DistrictRank = &rank
		r.TotalDistrict = &total
	}

	if err := tx.Where("exam_id = ?", exam.ID).Delete(&model.ExamRanking{}).Error; err != nil {
		return 0, err
	}
	if len(rankings) > 0 {
		if err := tx.CreateInBatches(rankings, 100).Error; err != nil {
			return 0, err
		}
	}
	return len(rankings), nil
}

// Calculate 重新计算考试排名
func (s *RankingService) Calculate(operator *model.User, examID uint) (int, error) {
	var count int
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		exam, err := manageable(tx, operator, examID)
		if err != nil {
			return err
		}
		if !exam.EnableRanking {
			return invalidState("该考试未开启排名")
		}
		count, err = calculateRankings(tx, exam)
		return err
	})
	return count, err
}

// ExamRankings 考试排名；学生只能查看已公开的排名
func (s *RankingService) ExamRankings(operator *model.User, examID uint, query types.RankingQuery) ([]model.ExamRanking, error) {
	exam, err := loadExam(database.DB, examID)
	if err != nil {
		return nil, err
	}
	if operator.IsStaff() {
		if !canManage(operator, exam) {
			return nil, forbidden("无权查看该考试排名")
		}
	} else if !exam.EnableRanking || !exam.RankingsVisible {
		return nil, forbidden("排名暂未公开")
	}

	// 学生只能看到其他考生的姓名
	db := database.DB.Where("exam_id = ?", examID)
	if operator.IsStaff() {
		db = db.Preload("Student")
	} else {
		db = db.Preload("Student", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "nickname")
		})
	}
	if query.StudentType != "" {
		db = db.Where("student_type = ?", strings.ToUpper(query.StudentType))
	}
	if query.District != "" {
		db = db.Where("district = ?", query.District)
	}

	if strings.ToUpper(query.Level) == types.RankingLevelDistrict {
		db = db.Where("district_rank IS NOT NULL").Order("district").Order("district_rank")
	} else {
		db = db.Order("island_rank")
	}

	var rankings []model.ExamRanking
	if err := db.Find(&rankings).Error; err != nil {
		return nil, err
	}
	for i := range rankings {
		r := &rankings[i]
		if r.Student != nil {
			r.StudentName = r.Student.DisplayName()
		}
		if !operator.IsStaff() {
			r.Student = nil
		}
	}
	return rankings, nil
}

type overviewRow struct {
	StudentID   uint
	StudentName string
	District    string
	Subject     string
	ExamID      uint
	ExamTitle   string
	Score       float64
	Percentage  float64
}

// Overview 按科目汇总的排名，每个学生每个科目取最好成绩
func (s *RankingService) Overview(operator *model.User, query types.RankingOverviewQuery) ([]types.SubjectRankings, error) {
	if query.Limit <= 0 {
		query.Limit = overviewDefaultLimit
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = overviewDefaultPageSize
	}
	ascending := strings.EqualFold(query.Order, "asc")

	db := database.DB.
		Preload("Exam").
		Preload("Student").
		Where("status IN ?", []string{model.AttemptSubmitted, model.AttemptGraded})
	if !operator.IsAdmin() {
		db = db.Where("exam_id IN (?)", database.DB.Model(&model.Exam{}).Select("id").Where("created_by_id = ?", operator.ID))
	}
	if query.Subject != "" {
		db = db.Where("exam_id IN (?)", database.DB.Model(&model.Exam{}).Select("id").Where("subject = ?", query.Subject))
	}

	var attempts []model.ExamAttempt
	if err := db.Find(&attempts).Error; err != nil {
		return nil, err
	}

	best := make(map[string]map[uint]*overviewRow)
	for _, a := range attempts {
		if a.Exam == nil || a.Student == nil {
			continue
		}
		subject := a.Exam.Subject
		if best[subject] == nil {
			best[subject] = make(map[uint]*overviewRow)
		}
		current := best[subject][a.StudentID]
		if current != nil && (current.Percentage > a.Percentage ||
			(current.Percentage == a.Percentage && current.Score >= a.TotalScore)) {
			continue
		}
		best[subject][a.StudentID] = &overviewRow{
			StudentID:   a.StudentID,
			StudentName: a.Student.DisplayName(),
			District:    a.Student.District,
			Subject:     subject,
			ExamID:      a.ExamID,
			ExamTitle:   a.Exam.Title,
			Score:       a.TotalScore,
			Percentage:  a.Percentage,
		}
	}

	subjects := make([]string, 0, len(best))
	for subject := range best {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	result := make([]types.SubjectRankings, 0, len(subjects))
	for _, subject := range subjects {
		rows := make([]*overviewRow, 0, len(best[subject]))
		for _, row := range best[subject] {
			rows = append(rows, row)
		}
		sort.Slice(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if a.Percentage != b.Percentage {
				return (a.Percentage > b.Percentage) != ascending
			}
			if a.Score != b.Score {
				return (a.Score > b.Score) != ascending
			}
			return a.StudentID < b.StudentID
		})

		// 名次按排序方向确定，在截取和翻页之前
		entries := make([]types.RankingEntry, 0, len(rows))
		for i, row := range rows {
			entries = append(entries, types.RankingEntry{
				Rank:        i + 1,
				StudentID:   row.StudentID,
				StudentName: row.StudentName,
				District:    row.District,
				Subject:     row.Subject,
				ExamID:      row.ExamID,
				ExamTitle:   row.ExamTitle,
				Score:       row.Score,
				Percentage:  row.Percentage,
			})
		}
		if len(entries) > query.Limit {
			entries = entries[:query.Limit]
		}

		total := int64(len(entries))
		start := (query.Page - 1) * query.PageSize
		if start > len(entries) {
			start = len(entries)
		}
		end := start + query.PageSize
		if end > len(entries) {
			end = len(entries)
		}

		result = append(result, types.SubjectRankings{
			Subject:    subject,
			Rankings:   entries[start:end],
			Pagination: types.NewPagination(query.Page, query.PageSize, total),
		})
	}
	return result, nil
}

// ExportCSV 导出排名，所有字段加引号
func (s *RankingService) ExportCSV(operator *model.User, examID uint, query types.RankingQuery, w io.Writer) error {
	rankings, err := s.ExamRankings(operator, examID, query)
	if err != nil {
		return err
	}

	district := strings.ToUpper(query.Level) == types.RankingLevelDistrict
	if err := writeQuotedRow(w, rankingCSVHeader); err != nil {
		return err
	}
	for _, r := range rankings {
		rank := r.IslandRank
		if district && r.DistrictRank != nil {
			rank = *r.DistrictRank
		}
		name := ""
		if r.Student != nil {
			name = r.Student.DisplayName()
		}
		row := []string{
			strconv.Itoa(rank),
			uintString(r.StudentID),
			name,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			strconv.FormatFloat(r.Percentage, 'f', 2, 64),
			r.District,
			r.StudentType,
		}
		if err := writeQuotedRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeQuotedRow(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := fmt.Fprintf(w, "%s\r\n", strings.Join(quoted, ","))
	return err
}
