// Package dbtest 测试用的 sqlite 内存库
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"projecthub/internal/core/database"
)

// Open 每个测试一个独立的内存库，测试结束自动关闭
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.NewGorm(database.Opts{
		Driver: "sqlite",
		DSN:    dsn,
		// 内存库单连接，避免跨连接锁表
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
