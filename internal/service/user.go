package service

import (
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/types"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var User = new(UserService)

type UserService struct{}

// UserQuery 用户列表筛选
type UserQuery struct {
	types.PageQuery
	Keyword  string `form:"keyword"`
	Role     string `form:"role"`
	District string `form:"district"`
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Role     string `json:"role" binding:"required"`
	District string `json:"district"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Nickname *string `json:"nickname"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
	Role     *string `json:"role"`
	District *string `json:"district"`
}

// UpdateProfileRequest 更新个人信息
type UpdateProfileRequest struct {
	Nickname    string `json:"nickname"`
	Avatar      string `json:"avatar"`
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	Password    string `json:"password"`
}

func (s *UserService) create(username, password, nickname, email, role, district string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("用户名和密码不能为空")
	}
	if !model.ValidRole(role) {
		return nil, invalid("无效的角色: %s", role)
	}

	var count int64
	if err := database.DB.Unscoped().Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("用户名已存在")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Password: string(hashedPassword),
		Nickname: nickname,
		Email:    email,
		Role:     role,
		District: district,
	}
	if err := database.DB.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Create 管理员创建用户
func (s *UserService) Create(req CreateUserRequest) (*model.User, error) {
	return s.create(req.Username, req.Password, req.Nickname, req.Email, req.Role, req.District)
}

// List 用户列表
func (s *UserService) List(query UserQuery) ([]model.User, int64, error) {
	query.Normalize(10, 100)

	db := database.DB.Model(&model.User{})
	if query.Keyword != "" {
		kw := "%" + query.Keyword + "%"
		db = db.Where("username LIKE ? OR nickname LIKE ? OR email LIKE ?", kw, kw, kw)
	}
	if query.Role != "" {
		db = db.Where("role = ?", query.Role)
	}
	if query.District != "" {
		db = db.Where("district = ?", query.District)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	if err := db.Order("created_at DESC").Offset(query.Offset()).Limit(query.Size).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Get(id uint) (*model.User, error) {
	var user model.User
	if err := database.DB.First(&user, id).Error; err != nil {
		return nil, wrapNotFound(err, "用户不存在")
	}
	return &user, nil
}

// Update 管理员更新用户
func (s *UserService) Update(id uint, req UpdateUserRequest) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	updates := make(map[string]interface{})
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}
	if req.District != nil {
		updates["district"] = *req.District
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return invalid("无效的角色: %s", *req.Role)
		}
		updates["role"] = *req.Role
	}
	if req.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		updates["password"] = string(hashedPassword)
	}
	if len(updates) == 0 {
		return nil
	}

	return database.DB.Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

// Delete 删除用户，不能删除自己
func (s *UserService) Delete(operator *model.User, id uint) error {
	if operator.ID == id {
		return invalid("不能删除当前登录账号")
	}

	result := database.DB.Delete(&model.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("用户不存在")
	}
	return nil
}

func (s *UserService) GetProfile(userId uint) (*model.User, error) {
	return s.Get(userId)
}

// UpdateProfile 更新个人信息，修改密码需校验旧密码
func (s *UserService) UpdateProfile(userId uint, req UpdateProfileRequest) error {
	user, err := s.Get(userId)
	if err != nil {
		return err
	}

	updates := make(map[string]interface{})
	if req.Nickname != "" {
		updates["nickname"] = req.Nickname
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Password != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
			return invalid("原密码错误")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		updates["password"] = string(hashedPassword)
	}
	if len(updates) == 0 {
		return nil
	}

	return database.DB.Model(&model.User{}).Where("id = ?", userId).Updates(updates).Error
}
