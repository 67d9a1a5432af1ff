package service

import (
	"context"
	"encoding/json"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/pkg/logger"
	"exam-portal/internal/types"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var AuditLog = new(AuditLogService)

type AuditLogService struct{}

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 200
	recentLimit       = 100
)

// Record 写入审计日志，失败只记录错误不影响主流程
func (s *AuditLogService) Record(entry types.CreateAuditLog) {
	if _, err := s.Create(context.Background(), entry); err != nil {
		logger.Errorf("写入审计日志失败 action=%s resource=%s: %v", entry.Action, entry.Resource, err)
	}
}

// Create 新增审计日志
func (s *AuditLogService) Create(ctx context.Context, entry types.CreateAuditLog) (*model.AuditLog, error) {
	oldValues, err := toJSON(entry.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := toJSON(entry.NewValues)
	if err != nil {
		return nil, err
	}
	metadata, err := toJSON(entry.Metadata)
	if err != nil {
		return nil, err
	}

	log := &model.AuditLog{
		UserID:     entry.UserID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		Endpoint:   entry.Endpoint,
		HTTPMethod: entry.HTTPMethod,
		OldValues:  oldValues,
		NewValues:  newValues,
		Metadata:   metadata,
	}
	if err := database.DB.WithContext(ctx).Create(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

// FindAll 分页查询，总数与列表并发获取
func (s *AuditLogService) FindAll(ctx context.Context, query types.AuditLogQuery) (*types.AuditLogList, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = auditDefaultLimit
	}
	if query.Limit > auditMaxLimit {
		query.Limit = auditMaxLimit
	}

	scope := func(ctx context.Context) *gorm.DB {
		db := database.DB.WithContext(ctx).Model(&model.AuditLog{})
		if query.UserID != nil {
			db = db.Where("user_id = ?", *query.UserID)
		}
		if query.Action != "" {
			db = db.Where("action = ?", query.Action)
		}
		if query.Resource != "" {
			db = db.Where("resource = ?", query.Resource)
		}
		if query.StartDate != nil {
			db = db.Where("created_at >= ?", *query.StartDate)
		}
		if query.EndDate != nil {
			db = db.Where("created_at <= ?", *query.EndDate)
		}
		return db
	}

	var (
		total int64
		logs  []model.AuditLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return scope(gctx).Preload("User").
			Order("created_at DESC").Order("id DESC").
			Offset((query.Page - 1) * query.Limit).
			Limit(query.Limit).
			Find(&logs).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]types.AuditLogItem, 0, len(logs))
	for i := range logs {
		items = append(items, toAuditItem(&logs[i]))
	}

	return &types.AuditLogList{
		Logs:       items,
		Pagination: types.NewPagination(query.Page, query.Limit, total),
	}, nil
}

// FindOne 获取单条日志
func (s *AuditLogService) FindOne(ctx context.Context, id uint) (*types.AuditLogItem, error) {
	var log model.AuditLog
	if err := database.DB.WithContext(ctx).Preload("User").First(&log, id).Error; err != nil {
		return nil, wrapNotFound(err, "审计日志不存在")
	}
	item := toAuditItem(&log)
	return &item, nil
}

// FindByUser 某个用户的最近操作
func (s *AuditLogService) FindByUser(ctx context.Context, userID uint, limit int) ([]types.AuditLogItem, error) {
	return s.findWhere(ctx, limit, "user_id = ?", userID)
}

// FindByResource 某个资源的操作历史
func (s *AuditLogService) FindByResource(ctx context.Context, resource, resourceID string, limit int) ([]types.AuditLogItem, error) {
	return s.findWhere(ctx, limit, "resource = ? AND resource_id = ?", resource, resourceID)
}

func (s *AuditLogService) findWhere(ctx context.Context, limit int, cond string, args ...interface{}) ([]types.AuditLogItem, error) {
	if limit <= 0 || limit > auditMaxLimit {
		limit = auditDefaultLimit
	}

	var logs []model.AuditLog
	if err := database.DB.WithContext(ctx).Preload("User").
		Where(cond, args...).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}

	items := make([]types.AuditLogItem, 0, len(logs))
	for i := range logs {
		items = append(items, toAuditItem(&logs[i]))
	}
	return items, nil
}

// RecentActivity 最近活动，无用户的记录显示为 System
func (s *AuditLogService) RecentActivity(ctx context.Context, limit int) ([]types.RecentActivity, error) {
	if limit <= 0 || limit > auditMaxLimit {
		limit = recentLimit
	}

	var logs []model.AuditLog
	if err := database.DB.WithContext(ctx).Preload("User").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}

	activities := make([]types.RecentActivity, 0, len(logs))
	for _, log := range logs {
		activity := types.RecentActivity{
			ID:         log.ID,
			UserName:   "System",
			Action:     log.Action,
			Resource:   log.Resource,
			ResourceID: log.ResourceID,
			CreatedAt:  log.CreatedAt,
			IPAddress:  log.IPAddress,
		}
		if log.User != nil {
			activity.UserName = log.User.DisplayName()
			activity.UserEmail = log.User.Email
			activity.UserRole = log.User.Role
		}
		activities = append(activities, activity)
	}
	return activities, nil
}

// ActivityStats 按动作、资源统计
func (s *AuditLogService) ActivityStats(ctx context.Context, start, end *time.Time) (*types.ActivityStats, error) {
	scope := func(ctx context.Context) *gorm.DB {
		db := database.DB.WithContext(ctx).Model(&model.AuditLog{})
		if start != nil {
			db = db.Where("created_at >= ?", *start)
		}
		if end != nil {
			db = db.Where("created_at <= ?", *end)
		}
		return db
	}

	type groupCount struct {
		Name  string
		Count int64
	}

	var (
		stats = &types.ActivityStats{
			ActionCounts:   map[string]int64{},
			ResourceCounts: map[string]int64{},
		}
		actions   []groupCount
		resources []groupCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scope(gctx).Select("action AS name, COUNT(*) AS count").Group("action").Scan(&actions).Error
	})
	g.Go(func() error {
		return scope(gctx).Select("resource AS name, COUNT(*) AS count").Group("resource").Scan(&resources).Error
	})
	g.Go(func() error {
		return scope(gctx).Count(&stats.TotalLogs).Error
	})
	g.Go(func() error {
		return scope(gctx).Where("user_id IS NOT NULL").Distinct("user_id").Count(&stats.UniqueUsers).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, a := range actions {
		stats.ActionCounts[a.Name] = a.Count
	}
	for _, r := range resources {
		stats.ResourceCounts[r.Name] = r.Count
	}
	return stats, nil
}

func toAuditItem(log *model.AuditLog) types.AuditLogItem {
	item := types.AuditLogItem{
		ID:         log.ID,
		UserID:     log.UserID,
		Action:     log.Action,
		Resource:   log.Resource,
		ResourceID: log.ResourceID,
		IPAddress:  log.IPAddress,
		UserAgent:  log.UserAgent,
		Endpoint:   log.Endpoint,
		HTTPMethod: log.HTTPMethod,
		OldValues:  fromJSON(log.OldValues),
		NewValues:  fromJSON(log.NewValues),
		Metadata:   fromJSON(log.Metadata),
		CreatedAt:  log.CreatedAt,
	}
	if log.User != nil {
		item.User = &types.AuditUser{
			ID:       log.User.ID,
			Username: log.User.Username,
			Nickname: log.User.Nickname,
			Email:    log.User.Email,
			Role:     log.User.Role,
		}
	}
	return item
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return datatypes.JSON(raw), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func fromJSON(data datatypes.JSON) interface{} {
	if len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}
