package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"
)

var questionCSVHeader = []string{"ID", "题目类型", "题目内容", "选项", "答案", "分值", "大题ID", "部分", "解析", "图片"}

// ImportResult 导入结果
type ImportResult struct {
	ImportCount int      `json:"import_count"`
	ErrorCount  int      `json:"error_count"`
	Errors      []string `json:"errors,omitempty"`
}

// ExportCSV 导出考试题目为 CSV，带 BOM 方便 Excel 打开
func (s *QuestionService) ExportCSV(operator *model.User, examID uint, w io.Writer) error {
	questions, err := s.ListFor(operator, examID)
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(questionCSVHeader); err != nil {
		return err
	}

	for _, q := range questions {
		options := ""
		if len(q.Options) > 0 {
			b, err := json.Marshal(q.Options)
			if err != nil {
				return err
			}
			options = string(b)
		}
		sectionID := ""
		if q.SectionID != nil {
			sectionID = strconv.FormatUint(uint64(*q.SectionID), 10)
		}

		record := []string{
			strconv.FormatUint(uint64(q.ID), 10),
			q.Type,
			q.Question,
			options,
			q.CorrectAnswer,
			strconv.FormatFloat(q.Points, 'f', -1, 64),
			sectionID,
			strconv.Itoa(q.ExamPart),
			q.Explanation,
			q.ImageURL,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ImportCSV 从 CSV 导入题目，单行错误不影响其他行，错误信息最多返回 10 条
func (s *QuestionService) ImportCSV(operator *model.User, examID uint, src io.ReadSeeker) (*ImportResult, error) {
	// 检测并跳过BOM头
	bom := make([]byte, 3)
	if n, err := src.Read(bom); err != nil || n < 3 || bom[0] != 0xEF || bom[1] != 0xBB || bom[2] != 0xBF {
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1 // 允许每行不同的字段数

	if _, err := reader.Read(); err != nil {
		return nil, invalid("CSV文件格式不正确")
	}

	result := &ImportResult{}
	fail := func(line int, format string, args ...interface{}) {
		result.ErrorCount++
		result.Errors = append(result.Errors, fmt.Sprintf("第%d行: ", line)+fmt.Sprintf(format, args...))
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	if _, err := editableExam(tx, operator, examID); err != nil {
		tx.Rollback()
		return nil, err
	}

	next, err := nextQuestionPosition(tx, examID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	for lineNum := 2; ; lineNum++ { // 表头为第1行
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fail(lineNum, "读取错误")
			continue
		}

		req, err := parseQuestionRecord(record)
		if err != nil {
			fail(lineNum, "%s", err.Error())
			continue
		}

		q, err := buildQuestion(tx, examID, nil, nil, *req)
		if err != nil {
			fail(lineNum, "%s", err.Error())
			continue
		}
		q.Position = next

		tx.SavePoint("question_row")
		if err := tx.Create(q).Error; err != nil {
			tx.RollbackTo("question_row")
			fail(lineNum, "创建题目失败: %s", err.Error())
			continue
		}
		next++
		result.ImportCount++
	}

	// 有成功导入的记录就提交
	if result.ImportCount > 0 {
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
	} else {
		tx.Rollback()
	}

	if len(result.Errors) > 10 {
		result.Errors = append(result.Errors[:10], "...")
	}
	return result, nil
}

// parseQuestionRecord 列顺序与导出一致，ID 列忽略
func parseQuestionRecord(record []string) (*types.QuestionRequest, error) {
	if len(record) < 6 {
		return nil, fmt.Errorf("字段数量不足")
	}

	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	req := &types.QuestionRequest{
		Type:          field(1),
		Question:      field(2),
		CorrectAnswer: field(4),
		Explanation:   field(8),
		ImageURL:      field(9),
	}
	if !model.ValidQuestionType(req.Type) {
		return nil, fmt.Errorf("题目类型错误: %s", req.Type)
	}

	if opts := field(3); opts != "" {
		if err := json.Unmarshal([]byte(opts), &req.Options); err != nil {
			return nil, fmt.Errorf("选项JSON格式错误")
		}
	}

	points, err := strconv.ParseFloat(field(5), 64)
	if err != nil {
		return nil, fmt.Errorf("分值格式错误")
	}
	req.Points = points

	if v := field(6); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("大题ID格式错误")
		}
		sectionID := uint(id)
		req.SectionID = &sectionID
	}
	if v := field(7); v != "" {
		part, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("部分格式错误")
		}
		req.ExamPart = part
	}
	return req, nil
}
