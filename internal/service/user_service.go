package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/core/auth"
	"projecthub/internal/core/cache"
	"projecthub/internal/domain"
	"projecthub/internal/policy"
	"projecthub/internal/validate"
	"projecthub/pkg/utils"
)

const (
	statsWindow = 30 * 24 * time.Hour

	msgValidationFailed   = "validation failed"
	msgInvalidCredentials = "invalid credentials"
	msgUserNotFound       = "user not found"
	msgEmailTaken         = "email is already taken"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// ProfileInput 只改传入的字段
type ProfileInput struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email  *string `json:"email" validate:"omitempty,email,max=191"`
	Avatar *string `json:"avatar" validate:"omitempty,url,max=255"`
}

type AdminUpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=191"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

type ListUsersInput struct {
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	Role     string `form:"role"`
	IsActive *bool  `form:"isActive"`
	Search   string `form:"search"`
}

type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type UserList struct {
	Users      []domain.User     `json:"users"`
	Pagination domain.Pagination `json:"pagination"`
}

type UserService struct {
	users    domain.UserRepository
	tokens   *auth.JWTer
	cache    *cache.Cache
	statsTTL time.Duration
	log      *zap.Logger
}

func NewUserService(users domain.UserRepository, tokens *auth.JWTer, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{users: users, tokens: tokens, log: log}
}

// WithStatsCache 统计结果走 redis；c 为 nil 时不缓存
func (s *UserService) WithStatsCache(c *cache.Cache, ttl time.Duration) *UserService {
	s.cache, s.statsTTL = c, ttl
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal("find user by email", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("user already exists with this email")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册同一邮箱，由唯一索引兜底
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict("user already exists with this email")
		}
		return nil, apperr.Internal("create user", err)
	}
	res, err := s.signIn(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return res, nil
}

// Login 未知邮箱、停用、密码错误统一返回同一文案
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal("find user by email", err)
	}
	if u == nil || !u.Active || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, apperr.Unauthenticated(msgInvalidCredentials)
	}
	return s.signIn(ctx, u)
}

func (s *UserService) signIn(ctx context.Context, u *domain.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, apperr.Internal("touch last login", err)
	}
	u.LastLoginAt = &now
	return &AuthResult{User: u, Token: tok}, nil
}

func (s *UserService) Me(ctx context.Context, caller *domain.Identity) (*domain.User, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("not authorized to access this route")
	}
	return s.mustFind(ctx, caller.ID)
}

// Logout 无状态，token 到期前仍然有效
func (s *UserService) Logout(_ context.Context, caller *domain.Identity) error {
	if caller == nil {
		return apperr.Unauthenticated("not authorized to access this route")
	}
	s.log.Debug("user logged out", zap.String("user_id", caller.ID))
	return nil
}

// ChangePassword 返回新 token；旧 token 不吊销
func (s *UserService) ChangePassword(ctx context.Context, caller *domain.Identity, in ChangePasswordInput) (string, error) {
	if caller == nil {
		return "", apperr.Unauthenticated("not authorized to access this route")
	}
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	u, err := s.mustFind(ctx, caller.ID)
	if err != nil {
		return "", err
	}
	if !utils.CheckPassword(in.CurrentPassword, u.PasswordHash) {
		return "", apperr.InvalidCredential("current password is incorrect")
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return "", apperr.Internal("hash password", err)
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return "", apperr.Internal("update password", err)
	}
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", apperr.Internal("issue token", err)
	}
	return tok, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *domain.Identity, in ProfileInput) (*domain.User, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("not authorized to access this route")
	}
	trimPtr(in.Name)
	normalizeEmailPtr(in.Email)
	trimPtr(in.Avatar)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.mustFind(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if err := s.applyEmail(ctx, u, in.Email); err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, caller *domain.Identity, id string) (*domain.User, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("not authorized to access this route")
	}
	return s.mustFind(ctx, id)
}

func (s *UserService) List(ctx context.Context, caller *domain.Identity, in ListUsersInput) (*UserList, error) {
	if !policy.CanListAllUsers(caller) {
		return nil, apperr.Forbidden("not authorized to list users")
	}
	f := domain.UserFilter{Active: in.IsActive, Search: strings.TrimSpace(in.Search)}
	if in.Role != "" {
		role, ok := domain.ParseRole(in.Role)
		if !ok {
			return nil, apperr.Validation(msgValidationFailed, apperr.FieldError{Field: "role", Message: "role must be either user or admin"})
		}
		f.Role = role
	}
	page := domain.NewPage(in.Page, in.Limit)
	users, total, err := s.users.List(ctx, f, page.Offset(), page.Limit)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return &UserList{Users: users, Pagination: page.Paginate(total)}, nil
}

func (s *UserService) AdminUpdate(ctx context.Context, caller *domain.Identity, id string, in AdminUpdateInput) (*domain.User, error) {
	trimPtr(in.Name)
	normalizeEmailPtr(in.Email)
	var extra []apperr.FieldError
	var role domain.Role
	if in.Role != nil {
		r, ok := domain.ParseRole(*in.Role)
		if !ok {
			extra = append(extra, apperr.FieldError{Field: "role", Message: "role must be either user or admin"})
		}
		role = r
	}

	u, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateUser(caller, u) {
		return nil, apperr.Forbidden("not authorized to update users")
	}
	if err := validate.Struct(in, extra...); err != nil {
		return nil, err
	}
	if err := s.applyEmail(ctx, u, in.Email); err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Role != nil {
		u.Role = role
	}
	if in.IsActive != nil {
		u.Active = *in.IsActive
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user updated by admin", zap.String("user_id", u.ID), zap.String("admin_id", caller.ID))
	return u, nil
}

// Delete 管理员删除他人；连带清理其项目与协作关系
func (s *UserService) Delete(ctx context.Context, caller *domain.Identity, id string) error {
	u, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}
	if caller != nil && caller.ID == u.ID {
		return apperr.Forbidden("you cannot delete your own account")
	}
	if !policy.CanDeleteUser(caller, u) {
		return apperr.Forbidden("not authorized to delete users")
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		return apperr.Internal("delete user", err)
	}
	s.log.Info("user deleted", zap.String("user_id", u.ID), zap.String("admin_id", caller.ID))
	return nil
}

func (s *UserService) Stats(ctx context.Context, caller *domain.Identity) (*domain.UserStats, error) {
	if !policy.CanViewUserStats(caller) {
		return nil, apperr.Forbidden("not authorized to view user statistics")
	}
	st, err := cache.GetOrLoadJSON(s.cache, ctx, "stats:users", s.statsTTL, func(ctx context.Context) (*domain.UserStats, error) {
		st, err := s.users.Stats(ctx, time.Now().Add(-statsWindow))
		if err != nil {
			return nil, err
		}
		return &st, nil
	})
	if err != nil {
		return nil, apperr.Internal("user stats", err)
	}
	return st, nil
}

func (s *UserService) mustFind(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if u == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return u, nil
}

// applyEmail 新邮箱被其他用户占用时返回 Conflict
func (s *UserService) applyEmail(ctx context.Context, u *domain.User, email *string) error {
	if email == nil || *email == u.Email {
		return nil
	}
	other, err := s.users.FindByEmail(ctx, *email)
	if err != nil {
		return apperr.Internal("find user by email", err)
	}
	if other != nil && other.ID != u.ID {
		return apperr.Conflict(msgEmailTaken)
	}
	u.Email = *email
	return nil
}

func (s *UserService) save(ctx context.Context, u *domain.User) error {
	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return apperr.Conflict(msgEmailTaken)
		}
		return apperr.Internal("update user", err)
	}
	return nil
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func normalizeEmailPtr(s *string) {
	if s != nil {
		*s = domain.NormalizeEmail(*s)
	}
}
