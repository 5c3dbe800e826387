package database

import (
	"testing"

	"ShowSync/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

func TestOpenSqliteMemory(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:database_open?mode=memory&cache=shared",
		LogLevel: "silent",
	}, logrus.New())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Fatalf("SELECT 1 = %d, %v", one, err)
	}
}

func TestGormLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"ERROR":  logger.Error,
		"info":   logger.Info,
		"":       logger.Warn,
		"warn":   logger.Warn,
	}
	for in, want := range cases {
		if got := gormLogLevel(in); got != want {
			t.Errorf("gormLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnsureDatabaseExistsSkipsDefaultDB(t *testing.T) {
	// 默认库无需创建，也不会发起连接
	if err := ensureDatabaseExists("postgres://u:p@127.0.0.1:1/postgres"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ensureDatabaseExists("postgres://u:p@127.0.0.1:1/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
