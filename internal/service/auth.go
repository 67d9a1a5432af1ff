package service

import (
	"errors"
	"exam-portal/internal/config"
	"exam-portal/internal/middleware"
	"exam-portal/internal/model"
	"exam-portal/internal/pkg/database"
	"exam-portal/internal/pkg/logger"
	"exam-portal/internal/types"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var Auth = new(AuthService)

type AuthService struct{}

// 登录失败原因
var (
	ErrUserNotFound  = errors.New("用户不存在")
	ErrWrongPassword = errors.New("密码错误")
	ErrNotStaff      = errors.New("无管理端权限")
)

// LoginContext 登录来源信息，用于登录日志
type LoginContext struct {
	IP        string
	UserAgent string
}

func (s *AuthService) Login(username, password string) (string, *model.User, error) {
	var user model.User
	if err := database.DB.Where("username = ?", username).First(&user).Error; err != nil {
		return "", nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrWrongPassword
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return "", nil, err
	}

	return token, &user, nil
}

// StaffLogin 管理端登录，每次尝试都会写入登录日志
func (s *AuthService) StaffLogin(username, password string, from LoginContext) (string, *model.User, error) {
	loginLog := model.AdminLoginLog{
		Username:  username,
		IP:        from.IP,
		UserAgent: from.UserAgent,
		LoginTime: time.Now(),
	}
	defer func() {
		if err := database.DB.Create(&loginLog).Error; err != nil {
			logger.Errorf("写入登录日志失败: %v", err)
		}
	}()

	token, user, err := s.Login(username, password)
	if err != nil {
		loginLog.FailReason = err.Error()
		return "", nil, err
	}

	loginLog.UserID = &user.ID
	loginLog.Role = user.Role
	if !user.IsStaff() {
		loginLog.FailReason = "非管理端用户"
		return "", nil, ErrNotStaff
	}

	loginLog.IsSuccess = true

	AuditLog.Record(types.CreateAuditLog{
		UserID:     &user.ID,
		Action:     model.AuditLogin,
		Resource:   "auth",
		ResourceID: fmt.Sprint(user.ID),
		IPAddress:  from.IP,
		UserAgent:  from.UserAgent,
		Metadata:   map[string]interface{}{"role": user.Role},
	})

	return token, user, nil
}

func (s *AuthService) Register(username, password, nickname string) (*model.User, error) {
	return User.create(username, password, nickname, "", model.RoleStudent, "")
}

// EnsureDefaultAdmin 检查并在缺失时创建默认管理员账号
func (s *AuthService) EnsureDefaultAdmin() error {
	var user model.User
	err := database.DB.Where("username = ?", "admin").First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询管理员账号失败: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		password := "exam_portal"
		if config.GlobalConfig != nil {
			password = config.GlobalConfig.Admin.DefaultPassword
		}

		hashedPassword, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return fmt.Errorf("生成管理员默认密码失败: %w", hashErr)
		}

		admin := &model.User{
			Username: "admin",
			Password: string(hashedPassword),
			Nickname: "管理员",
			Role:     model.RoleAdmin,
		}

		if createErr := database.DB.Create(admin).Error; createErr != nil {
			return fmt.Errorf("创建默认管理员账号失败: %w", createErr)
		}

		logger.Infof("默认管理员账号已创建，用户名: %s", admin.Username)
		return nil
	}

	// 如果存在但不是管理员角色，进行修正
	if !user.IsAdmin() {
		if updateErr := database.DB.Model(&model.User{}).
			Where("id = ?", user.ID).
			Update("role", model.RoleAdmin).Error; updateErr != nil {
			return fmt.Errorf("更新管理员角色失败: %w", updateErr)
		}
		logger.Infof("账号 %s 已设置为管理员", user.Username)
	}

	return nil
}

// ResetPassword 通过用户名重置密码
func (s *AuthService) ResetPassword(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("用户名或密码不能为空")
	}

	var user model.User
	if err := database.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("用户不存在: %s", username)
		}
		return fmt.Errorf("查询用户失败: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("加密密码失败: %w", err)
	}

	if err := database.DB.Model(&model.User{}).
		Where("id = ?", user.ID).
		Update("password", string(hashedPassword)).Error; err != nil {
		return fmt.Errorf("更新密码失败: %w", err)
	}

	logger.Infof("用户 %s 的密码已被重置", username)
	return nil
}

// LoginLogQuery 登录日志筛选
type LoginLogQuery struct {
	types.PageQuery
	Username  string `form:"username"`
	Status    string `form:"status"`     // success 或 fail
	StartTime string `form:"start_time"` // 2006-01-02 15:04:05
	EndTime   string `form:"end_time"`
}

// LoginLogs 管理端登录日志
func (s *AuthService) LoginLogs(query LoginLogQuery) ([]model.AdminLoginLog, int64, error) {
	query.Normalize(10, 100)

	db := database.DB.Model(&model.AdminLoginLog{})
	if query.Username != "" {
		db = db.Where("username LIKE ?", "%"+query.Username+"%")
	}
	switch query.Status {
	case "success":
		db = db.Where("is_success = ?", true)
	case "fail":
		db = db.Where("is_success = ?", false)
	}

	// 时间格式不对时忽略该条件
	if query.StartTime != "" {
		if start, err := time.ParseInLocation("2006-01-02 15:04:05", query.StartTime, time.Local); err == nil {
			db = db.Where("login_time >= ?", start)
		}
	}
	if query.EndTime != "" {
		if end, err := time.ParseInLocation("2006-01-02 15:04:05", query.EndTime, time.Local); err == nil {
			db = db.Where("login_time <= ?", end)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.AdminLoginLog
	if err := db.Order("login_time DESC").
		Offset(query.Offset()).
		Limit(query.Size).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
