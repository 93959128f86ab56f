package auth

import (
	"context"

	"projecthub/internal/domain"
)

type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity 把身份快照挂到请求 context 上
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFrom 匿名请求返回 nil
func IdentityFrom(ctx context.Context) *domain.Identity {
	v := ctx.Value(identityContextKey)
	if v == nil {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}
