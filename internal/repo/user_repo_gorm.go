package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"projecthub/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	m := userFromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translate(err)
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *UserRepo) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *UserRepo) scope(f domain.UserFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Role != "" {
			q = q.Where("role = ?", string(f.Role))
		}
		if f.Active != nil {
			q = q.Where("active = ?", *f.Active)
		}
		if f.Search != "" {
			cond, args := searchWhere(q, f.Search, "name", "email")
			q = q.Where(cond, args...)
		}
		return q
	}
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter, offset, limit int) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Scopes(r.scope(f)).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []UserModel
	err := r.db.WithContext(ctx).Scopes(r.scope(f)).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	users := make([]domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].toDomain())
	}
	return users, total, nil
}

// Update 整行保存（调用方已合并好部分字段）
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	m := userFromDomain(u)
	err := r.db.WithContext(ctx).Model(m).Select(
		"Name", "Email", "PasswordHash", "Role", "Avatar", "Active", "LastLoginAt",
	).Updates(m).Error
	if err != nil {
		return translate(err)
	}
	u.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// Delete 硬删除：先清理协作关系和名下项目
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&ProjectModel{}).Select("id").Where("owner_id = ?", id)
		if err := tx.Where("project_id IN (?)", owned).Delete(&ProjectTechModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id IN (?) OR user_id = ?", owned, id).Delete(&CollaboratorModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", id).Delete(&ProjectModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&UserModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *UserRepo) Stats(ctx context.Context, since time.Time) (domain.UserStats, error) {
	var s domain.UserStats
	count := func(dst *int64, query string, args ...any) error {
		q := r.db.WithContext(ctx).Model(&UserModel{})
		if query != "" {
			q = q.Where(query, args...)
		}
		return q.Count(dst).Error
	}
	if err := count(&s.TotalUsers, ""); err != nil {
		return s, err
	}
	if err := count(&s.ActiveUsers, "active = ?", true); err != nil {
		return s, err
	}
	if err := count(&s.AdminUsers, "role = ?", string(domain.RoleAdmin)); err != nil {
		return s, err
	}
	if err := count(&s.NewUsers, "created_at >= ?", since); err != nil {
		return s, err
	}
	s.InactiveUsers = s.TotalUsers - s.ActiveUsers
	return s, nil
}
