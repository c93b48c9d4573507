// Package dbtest поднимает схему в настоящем Postgres для интеграционных
// тестов. Без переменной TEST_PG_DSN такие тесты пропускаются.
package dbtest

import (
	"fmt"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib" // golang postgres driver
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

const EnvDSN = "TEST_PG_DSN"

// Open подключается к базе из TEST_PG_DSN, применяет миграции и очищает
// перечисленные таблицы до и после теста.
func Open(t *testing.T, migrations []string, tables ...string) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s is not set", EnvDSN)
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)

	require.NoError(t, MigrateFromFile(db, migrations...))
	require.NoError(t, Truncate(db, tables...))

	t.Cleanup(func() {
		_ = Truncate(db, tables...)
		_ = db.Close()
	})

	return db
}

// MigrateFromFile выполняет SQL из файлов по порядку.
func MigrateFromFile(db *sqlx.DB, fileNames ...string) error {
	for _, fileName := range fileNames {
		query, err := os.ReadFile(fileName)
		if err != nil {
			return fmt.Errorf("os.ReadFile: %w", err)
		}

		if _, err = db.Exec(string(query)); err != nil {
			return fmt.Errorf("db.Exec %s: %w", fileName, err)
		}
	}

	return nil
}

func Truncate(db *sqlx.DB, tables ...string) error {
	for _, table := range tables {
		if _, err := db.Exec("TRUNCATE TABLE " + table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}

	return nil
}
