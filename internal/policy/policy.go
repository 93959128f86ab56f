// Package policy 纯函数的访问控制判定，无 I/O，caller 为 nil 表示匿名
package policy

import "projecthub/internal/domain"

func CanReadProject(caller *domain.Identity, p *domain.Project) bool {
	if p == nil {
		return false
	}
	if p.IsPublic {
		return true
	}
	if caller == nil {
		return false
	}
	return caller.ID == p.Owner.ID || caller.IsAdmin() || p.HasCollaborator(caller.ID)
}

// CanMutateProject 更新/删除：所有者或管理员
func CanMutateProject(caller *domain.Identity, p *domain.Project) bool {
	if caller == nil || p == nil {
		return false
	}
	return caller.ID == p.Owner.ID || caller.IsAdmin()
}

// CanManageCollaborators 仅所有者，管理员不例外
func CanManageCollaborators(caller *domain.Identity, p *domain.Project) bool {
	if caller == nil || p == nil {
		return false
	}
	return caller.ID == p.Owner.ID
}

// CanDeleteUser 管理员且不能删自己
func CanDeleteUser(caller *domain.Identity, target *domain.User) bool {
	if caller == nil || target == nil {
		return false
	}
	return caller.IsAdmin() && caller.ID != target.ID
}

func CanUpdateUser(caller *domain.Identity, target *domain.User) bool {
	return target != nil && caller.IsAdmin()
}

func CanListAllUsers(caller *domain.Identity) bool { return caller.IsAdmin() }

func CanViewUserStats(caller *domain.Identity) bool { return caller.IsAdmin() }

func CanViewProjectStats(caller *domain.Identity) bool { return caller.IsAdmin() }
