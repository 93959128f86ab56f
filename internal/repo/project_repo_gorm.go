package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"projecthub/internal/domain"
)

type ProjectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// projectScope 显式过滤 + 可见性，各自独立 AND
func projectScope(q domain.ProjectQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Status != "" {
			db = db.Where("projects.status = ?", string(q.Status))
		}
		if q.Tech != "" {
			db = db.Where("EXISTS (SELECT 1 FROM project_techs pt WHERE pt.project_id = projects.id AND pt.name = ?)", q.Tech)
		}
		if q.OwnerID != "" {
			db = db.Where("projects.owner_id = ?", q.OwnerID)
		}
		if q.Search != "" {
			cond, args := searchWhere(db, q.Search, "projects.name", "projects.description")
			db = db.Where(cond, args...)
		}
		switch q.Visibility {
		case domain.VisibilityPublic:
			db = db.Where("projects.is_public = ?", true)
		case domain.VisibilityMember:
			db = db.Where(
				"(projects.is_public = ? OR projects.owner_id = ? OR EXISTS (SELECT 1 FROM project_collaborators pc WHERE pc.project_id = projects.id AND pc.user_id = ?))",
				true, q.ViewerID, q.ViewerID,
			)
		}
		return db
	}
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Techs", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Collaborators", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Collaborators.User")
}

func (r *ProjectRepo) List(ctx context.Context, q domain.ProjectQuery, offset, limit int) ([]domain.Project, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ProjectModel{}).Scopes(projectScope(q)).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []ProjectModel
	err := r.db.WithContext(ctx).Model(&ProjectModel{}).
		Scopes(projectScope(q), withAssociations).
		Order("projects.last_updated DESC").Order("projects.id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Project, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, total, nil
}

func (r *ProjectRepo) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var m ProjectModel
	err := r.db.WithContext(ctx).Scopes(withAssociations).Where("projects.id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := m.toDomain()
	return &p, nil
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	m := projectFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return translate(err)
		}
		if rows := techRows(m.ID, p.Tech); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		p.CreatedAt, p.UpdatedAt = m.CreatedAt, m.UpdatedAt
		return nil
	})
}

// Update 覆盖可变字段，技术栈整体替换
func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	m := projectFromDomain(p)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(m).Omit(clause.Associations).Select(
			"Name", "Description", "Status", "IsPublic", "Users", "Tags",
			"RepositoryURL", "RepositoryBranch", "DeploymentURL", "DeploymentStatus", "LastUpdated",
		).Updates(m)
		if res.Error != nil {
			return translate(res.Error)
		}
		if err := tx.Where("project_id = ?", m.ID).Delete(&ProjectTechModel{}).Error; err != nil {
			return err
		}
		if rows := techRows(m.ID, p.Tech); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		p.UpdatedAt = m.UpdatedAt
		return nil
	})
}

// Delete 硬删除，连同技术栈与协作关系
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&ProjectTechModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&CollaboratorModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&ProjectModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// AddCollaborator (project, user) 唯一，冲突返回 domain.ErrDuplicate
func (r *ProjectRepo) AddCollaborator(ctx context.Context, projectID, userID string, role domain.CollaboratorRole) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := CollaboratorModel{ProjectID: projectID, UserID: userID, Role: string(role)}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return translate(err)
		}
		return tx.Model(&ProjectModel{}).Where("id = ?", projectID).
			Updates(map[string]any{"last_updated": time.Now()}).Error
	})
}

func (r *ProjectRepo) Stats(ctx context.Context, since time.Time, topN int) (domain.ProjectStats, error) {
	var s domain.ProjectStats
	db := r.db.WithContext(ctx)

	var byStatus []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&ProjectModel{}).Select("status, COUNT(*) AS total").Group("status").Scan(&byStatus).Error; err != nil {
		return s, err
	}
	for _, row := range byStatus {
		s.TotalProjects += row.Total
		switch domain.Status(row.Status) {
		case domain.StatusActive:
			s.ActiveProjects = row.Total
		case domain.StatusDevelopment:
			s.DevelopmentProjects = row.Total
		case domain.StatusInactive:
			s.InactiveProjects = row.Total
		case domain.StatusCompleted:
			s.CompletedProjects = row.Total
		}
	}
	if err := db.Model(&ProjectModel{}).Where("is_public = ?", true).Count(&s.PublicProjects).Error; err != nil {
		return s, err
	}
	s.PrivateProjects = s.TotalProjects - s.PublicProjects
	if err := db.Model(&ProjectModel{}).Where("created_at >= ?", since).Count(&s.NewProjects).Error; err != nil {
		return s, err
	}

	var top []struct {
		Name  string
		Total int64
	}
	err := db.Model(&ProjectTechModel{}).
		Select("name, COUNT(*) AS total").
		Group("name").
		Order("total DESC").Order("name ASC").
		Limit(topN).
		Scan(&top).Error
	if err != nil {
		return s, err
	}
	s.TopTechnologies = make([]domain.TechCount, 0, len(top))
	for _, t := range top {
		s.TopTechnologies = append(s.TopTechnologies, domain.TechCount{Tech: t.Name, Count: t.Total})
	}
	return s, nil
}
