package service

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var Draft = new(DraftService)

type DraftService struct{}

const draftKeyPrefix = "exam_draft_"

var draftKeyPattern = regexp.MustCompile(`^exam_draft_(\d+|new_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// DraftSummary 草稿列表项，不含内容
type DraftSummary struct {
	Key       string    `json:"key"`
	ExamID    *uint     `json:"exam_id"`
	Step      int       `json:"step"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidDraftKey exam_draft_<考试ID> 或 exam_draft_new_<uuid>
func ValidDraftKey(key string) bool {
	return draftKeyPattern.MatchString(key)
}

// DraftKeyForExam 已有考试的草稿 key
func DraftKeyForExam(examID uint) string {
	return draftKeyPrefix + strconv.FormatUint(uint64(examID), 10)
}

// NewKey 新考试的草稿 key
func (s *DraftService) NewKey() string {
	return draftKeyPrefix + "new_" + uuid.NewString()
}

func (s *DraftService) load(db *gorm.DB, user *model.User, key string) (*model.ExamDraft, error) {
	if !ValidDraftKey(key) {
		return nil, invalid("草稿key格式不正确")
	}
	var draft model.ExamDraft
	if err := db.Where("draft_key = ?", key).First(&draft).Error; err != nil {
		return nil, wrapNotFound(err, "草稿不存在")
	}
	if draft.UserID != user.ID {
		return nil, forbidden("无权访问该草稿")
	}
	return &draft, nil
}

// Save 保存草稿，version 必须与已保存的版本一致
func (s *DraftService) Save(user *model.User, key string, req types.SaveDraftRequest) (*model.ExamDraft, error) {
	if !ValidDraftKey(key) {
		return nil, invalid("草稿key格式不正确")
	}
	if len(req.Payload) == 0 {
		return nil, invalid("草稿内容不能为空")
	}

	var saved model.ExamDraft
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("draft_key = ?", key).First(&saved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if req.Version != 0 {
				return conflict("草稿不存在或已被删除")
			}
			saved = model.ExamDraft{
				DraftKey: key,
				UserID:   user.ID,
				ExamID:   req.ExamID,
				Step:     req.Step,
				Version:  1,
				Payload:  datatypes.JSON(req.Payload),
			}
			return tx.Create(&saved).Error
		}
		if err != nil {
			return err
		}

		if saved.UserID != user.ID {
			return forbidden("无权修改该草稿")
		}
		if saved.Version != req.Version {
			return conflict("草稿已在其他地方更新(当前版本 %d)", saved.Version)
		}

		// 以版本号作为条件，防止并发保存互相覆盖
		result := tx.Model(&model.ExamDraft{}).
			Where("id = ? AND version = ?", saved.ID, req.Version).
			Updates(map[string]interface{}{
				"exam_id": req.ExamID,
				"step":    req.Step,
				"version": req.Version + 1,
				"payload": datatypes.JSON(req.Payload),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return conflict("草稿已在其他地方更新")
		}
		return tx.First(&saved, saved.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Get 获取草稿
func (s *DraftService) Get(user *model.User, key string) (*model.ExamDraft, error) {
	return s.load(database.DB, user, key)
}

// List 当前用户的草稿，最近更新的在前
func (s *DraftService) List(user *model.User) ([]DraftSummary, error) {
	var drafts []model.ExamDraft
	if err := database.DB.
		Select("draft_key", "exam_id", "step", "version", "updated_at").
		Where("user_id = ?", user.ID).
		Order("updated_at DESC").
		Find(&drafts).Error; err != nil {
		return nil, err
	}

	summaries := make([]DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		summaries = append(summaries, DraftSummary{
			Key:       d.DraftKey,
			ExamID:    d.ExamID,
			Step:      d.Step,
			Version:   d.Version,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return summaries, nil
}

// Delete 删除草稿
func (s *DraftService) Delete(user *model.User, key string) error {
	draft, err := s.load(database.DB, user, key)
	if err != nil {
		return err
	}
	return database.DB.Delete(draft).Error
}

// PurgeStale 删除 before 之前未更新的草稿
func (s *DraftService) PurgeStale(before time.Time) (int64, error) {
	result := database.DB.Where("updated_at < ?", before).Delete(&model.ExamDraft{})
	return result.RowsAffected, result.Error
}
