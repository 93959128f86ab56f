package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("project not found")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrap: %w", Conflict("dup"))))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnexpected, KindOf(Internal("db error", errors.New("conn reset"))))
	assert.True(t, Is(Forbidden("no"), KindForbidden))
	assert.False(t, Is(nil, KindForbidden))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "invalid credentials", PublicMessage(Unauthenticated("invalid credentials")))
	// 内部错误不外泄
	assert.Equal(t, "something went wrong", PublicMessage(Internal("list users failed", errors.New("pq: relation"))))
	assert.Equal(t, "something went wrong", PublicMessage(errors.New("raw")))
}

func TestErrorUnwrap(t *testing.T) {
	root := errors.New("root")
	err := Internal("load", root)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "load: root", err.Error())
}

func TestValidationFields(t *testing.T) {
	err := Validation("validation failed", FieldError{Field: "name", Message: "name is required"})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Len(t, FieldsOf(err), 1)
	assert.Nil(t, FieldsOf(errors.New("x")))
}
