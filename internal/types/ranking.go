package types

// 排名层级
const (
	RankingLevelIsland   = "ISLAND"
	RankingLevelDistrict = "DISTRICT"
)

// RankingQuery 单场考试排名筛选
type RankingQuery struct {
	Level       string `form:"level"`
	StudentType string `form:"student_type"`
	District    string `form:"district"`
}

// RankingOverviewQuery 管理端排名总览
type RankingOverviewQuery struct {
	Subject  string `form:"subject"`
	Limit    int    `form:"limit"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Order    string `form:"order"` // desc(默认) 或 asc
}

// RankingEntry 排名总览条目
type RankingEntry struct {
	Rank        int     `json:"rank"`
	StudentID   uint    `json:"student_id"`
	StudentName string  `json:"student_name"`
	District    string  `json:"district"`
	Subject     string  `json:"subject"`
	ExamID      uint    `json:"exam_id"`
	ExamTitle   string  `json:"exam_title"`
	Score       float64 `json:"score"`
	Percentage  float64 `json:"percentage"`
}

// SubjectRankings 按科目分组的排名
type SubjectRankings struct {
	Subject    string         `json:"subject"`
	Rankings   []RankingEntry `json:"rankings"`
	Pagination Pagination     `json:"pagination"`
}
