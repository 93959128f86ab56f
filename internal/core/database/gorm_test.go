package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{"native dsn untouched", "root:pw@tcp(127.0.0.1:3306)/hub?parseTime=true", "", "", "root:pw@tcp(127.0.0.1:3306)/hub?parseTime=true"},
		{"empty", "  ", "", "", ""},
		{
			"jdbc url",
			"jdbc:mysql://db:3306/hub?useSSL=false&serverTimezone=UTC&useUnicode=true",
			"", "", "tcp(db:3306)/hub?charset=utf8mb4&loc=UTC&parseTime=true&tls=false",
		},
		{
			"override credentials",
			"mysql://a:b@db:3306/hub?charset=utf8",
			"app", "secret", "app:secret@tcp(db:3306)/hub?charset=utf8&parseTime=true",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, normalizeMySQLDSN(c.in, c.user, c.pass))
		})
	}
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNewGorm_SQLite(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, Ping(db))
	require.NoError(t, Close(db))
	assert.NoError(t, Close(nil))
}
