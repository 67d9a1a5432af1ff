package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogFindAll(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	admin := createUser(t, "admin", model.RoleAdmin, "")
	teacher := createUser(t, "teacher", model.RoleTeacher, "")

	entries := []types.CreateAuditLog{
		{UserID: &admin.ID, Action: model.AuditCreate, Resource: "exams", ResourceID: "1"},
		{UserID: &admin.ID, Action: model.AuditUpdate, Resource: "exams", ResourceID: "1", OldValues: map[string]string{"title": "a"}, NewValues: map[string]string{"title": "b"}},
		{UserID: &teacher.ID, Action: model.AuditCreate, Resource: "questions", ResourceID: "7"},
		{Action: model.AuditDelete, Resource: "drafts"},
	}
	for _, e := range entries {
		_, err := AuditLog.Create(ctx, e)
		require.NoError(t, err)
	}

	all, err := AuditLog.FindAll(ctx, types.AuditLogQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.Pagination.Total)
	assert.Equal(t, auditDefaultLimit, all.Pagination.Limit)
	require.Len(t, all.Logs, 4)
	assert.Equal(t, "drafts", all.Logs[0].Resource, "newest first")
	assert.Nil(t, all.Logs[0].User)
	assert.Nil(t, all.Logs[0].OldValues)

	byUser, err := AuditLog.FindAll(ctx, types.AuditLogQuery{UserID: &admin.ID, Action: model.AuditUpdate})
	require.NoError(t, err)
	require.Len(t, byUser.Logs, 1)
	assert.JSONEq(t, `{"title":"a"}`, string(byUser.Logs[0].OldValues.(json.RawMessage)))

	paged, err := AuditLog.FindAll(ctx, types.AuditLogQuery{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, paged.Logs, 1)
	assert.Equal(t, 2, paged.Pagination.TotalPages)

	capped, err := AuditLog.FindAll(ctx, types.AuditLogQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, auditMaxLimit, capped.Pagination.Limit)

	future := time.Now().Add(time.Hour)
	none, err := AuditLog.FindAll(ctx, types.AuditLogQuery{StartDate: &future})
	require.NoError(t, err)
	assert.Empty(t, none.Logs)
}

func TestAuditLogFindOne(t *testing.T) {
	setupDB(t)
	ctx := context.Background()

	log, err := AuditLog.Create(ctx, types.CreateAuditLog{Action: model.AuditLogin, Resource: "auth"})
	require.NoError(t, err)

	item, err := AuditLog.FindOne(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditLogin, item.Action)

	_, err = AuditLog.FindOne(ctx, log.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditLogRecentActivityAndStats(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	admin := createUser(t, "admin", model.RoleAdmin, "")
	admin.Email = "admin@example.com"
	require.NoError(t, database.DB.Save(admin).Error)

	AuditLog.Record(types.CreateAuditLog{UserID: &admin.ID, Action: model.AuditCreate, Resource: "exams"})
	AuditLog.Record(types.CreateAuditLog{UserID: &admin.ID, Action: model.AuditCreate, Resource: "questions"})
	AuditLog.Record(types.CreateAuditLog{Action: model.AuditDelete, Resource: "drafts"})

	recent, err := AuditLog.RecentActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "System", recent[0].UserName)
	assert.Equal(t, "admin", recent[1].UserName)
	assert.Equal(t, "admin@example.com", recent[1].UserEmail)
	assert.Equal(t, model.RoleAdmin, recent[1].UserRole)

	stats, err := AuditLog.ActivityStats(ctx, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalLogs)
	assert.EqualValues(t, 1, stats.UniqueUsers)
	assert.Equal(t, map[string]int64{model.AuditCreate: 2, model.AuditDelete: 1}, stats.ActionCounts)
	assert.Equal(t, map[string]int64{"exams": 1, "questions": 1, "drafts": 1}, stats.ResourceCounts)

	byUser, err := AuditLog.FindByUser(ctx, admin.ID, 0)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)
}

func TestFanOutQueriesHonourCancellation(t *testing.T) {
	setupDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AuditLog.FindAll(ctx, types.AuditLogQuery{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = AuditLog.ActivityStats(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Approval.Pending(ctx, 1, 10)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Statistics.Overview(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
