package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"projecthub/internal/domain"
)

// translate 把驱动层唯一冲突统一成 domain.ErrDuplicate，其余原样返回
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDupKey(err) {
		return domain.ErrDuplicate
	}
	return err
}

func isDupKey(err error) bool {
	// TranslateError 未覆盖的驱动兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

// searchWhere 多列大小写不敏感子串匹配，列之间 OR 并整体加括号。
// postgres 用 ILIKE（Unicode 大小写折叠）；mysql 的 LOWER 同样支持 Unicode；
// sqlite 的 LOWER 只折叠 ASCII。
func searchWhere(db *gorm.DB, search string, cols ...string) (string, []any) {
	return searchClause(db.Dialector.Name(), cols...), repeatArg(likePattern(search), len(cols))
}

func searchClause(dialect string, cols ...string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		if dialect == "postgres" {
			parts = append(parts, c+" ILIKE ? ESCAPE '!'")
		} else {
			parts = append(parts, "LOWER("+c+") LIKE ? ESCAPE '!'")
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func repeatArg(v any, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// likePattern 转义通配符，配合 ESCAPE '!' 使用（各数据库通用）
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
