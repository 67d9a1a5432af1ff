package service

import (
	"math"
	"strconv"
	"strings"

	"exam-portal/internal/model"
)

// 比较答案是否正确
func compareAnswers(correctAnswer string, userAnswer []string) bool {
	// 将正确答案字符串转换为字符数组进行比较
	// 例如："ABC" 转换为 ["A", "B", "C"]
	var correctAnswers []string
	for _, c := range correctAnswer {
		correctAnswers = append(correctAnswers, string(c))
	}

	if len(correctAnswers) != len(userAnswer) {
		return false
	}

	userAnswerMap := make(map[string]bool)
	for _, a := range userAnswer {
		userAnswerMap[a] = true
	}

	for _, a := range correctAnswers {
		if !userAnswerMap[a] {
			return false
		}
	}

	return true
}

// cleanAnswer 清理答案，只保留选项字母（ABCDE等）
func cleanAnswer(answer string) string {
	answer = strings.ToUpper(answer)

	var result strings.Builder
	for _, ch := range answer {
		if ch >= 'A' && ch <= 'Z' {
			result.WriteRune(ch)
		}
	}

	return result.String()
}

// splitLetters "A,C" -> ["A", "C"]，重复字母只保留一次
func splitLetters(answer string) []string {
	seen := make(map[rune]bool)
	var letters []string
	for _, ch := range cleanAnswer(answer) {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		letters = append(letters, string(ch))
	}
	return letters
}

// gradeAnswer 自动判分，返回是否正确；主观题返回 ok=false
func gradeAnswer(q *model.ExamQuestion, answer string) (correct bool, ok bool) {
	switch q.Type {
	case model.QuestionMCQ, model.QuestionTrueFalse:
		given := cleanAnswer(answer)
		return given != "" && given == cleanAnswer(q.CorrectAnswer), true
	case model.QuestionMultiple:
		return compareAnswers(cleanAnswer(q.CorrectAnswer), splitLetters(answer)), true
	case model.QuestionFillInBlank:
		given := normalizeText(answer)
		if given == "" {
			return false, true
		}
		// 多个可接受答案用 | 分隔
		for _, accepted := range strings.Split(q.CorrectAnswer, "|") {
			if normalizeText(accepted) == given {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return round2(score / max * 100)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
