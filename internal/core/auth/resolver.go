package auth

import (
	"context"
	"errors"
	"strings"

	"projecthub/internal/apperr"
	"projecthub/internal/domain"
)

const bearerPrefix = "Bearer "

var errMissingToken = apperr.Unauthenticated("not authorized to access this route")

// UserFinder 只需要按 id 查用户
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type Resolver struct {
	Tokens *JWTer
	Users  UserFinder
}

func NewResolver(tokens *JWTer, users UserFinder) *Resolver {
	return &Resolver{Tokens: tokens, Users: users}
}

// BearerToken 从 Authorization 头取 token，没有则返回空串
func BearerToken(header string) string {
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
}

// Resolve 校验 token 并加载用户，失败均为 Unauthenticated（存储故障除外）
func (r *Resolver) Resolve(ctx context.Context, header string) (*domain.Identity, error) {
	tok := BearerToken(header)
	if tok == "" {
		return nil, errMissingToken
	}
	uid, err := r.Tokens.Verify(tok)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, apperr.Unauthenticated("your token has expired, please log in again")
		}
		return nil, apperr.Unauthenticated("invalid token, please log in again")
	}
	u, err := r.Users.FindByID(ctx, uid)
	if err != nil {
		return nil, apperr.Internal("load user failed", err)
	}
	if u == nil {
		return nil, apperr.Unauthenticated("no user found with this token")
	}
	if !u.Active {
		return nil, apperr.Unauthenticated("user account is deactivated")
	}
	return u.Identity(), nil
}
