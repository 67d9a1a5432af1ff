package types

// PageQuery 通用分页参数
type PageQuery struct {
	Page int `form:"page" json:"page"`
	Size int `form:"size" json:"size"`
}

// Normalize 填充默认值并限制每页数量
func (q *PageQuery) Normalize(defaultSize, maxSize int) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 {
		q.Size = defaultSize
	}
	if maxSize > 0 && q.Size > maxSize {
		q.Size = maxSize
	}
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Size
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// PageResult 列表返回结构
type PageResult struct {
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}
