// Package migrate 提供数据库自动迁移功能 (基于 golang-migrate)
package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator 迁移器
type Migrator struct {
	db          *sql.DB
	logger      *zap.Logger
	serviceName string
}

// NewMigrator 创建迁移器
func NewMigrator(db *sql.DB, serviceName string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{
		db:          db,
		logger:      logger,
		serviceName: serviceName,
	}
}

// AutoMigrate 从嵌入的文件系统执行全部 up 迁移
func (m *Migrator) AutoMigrate(migrationsFS fs.FS, migrationsPath string) error {
	m.logger.Info("starting auto migration",
		zap.String("service", m.serviceName),
		zap.String("path", migrationsPath))

	source, err := iofs.New(migrationsFS, migrationsPath)
	if err != nil {
		return fmt.Errorf("create migration source failed: %w", err)
	}

	driver, err := postgres.WithInstance(m.db, &postgres.Config{
		MigrationsTable: migrationsTable(m.serviceName),
	})
	if err != nil {
		return fmt.Errorf("create postgres driver failed: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator failed: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("no new migrations to apply", zap.String("service", m.serviceName))
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("get migration version failed: %w", err)
	}

	m.logger.Info("auto migration completed",
		zap.String("service", m.serviceName),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))

	return nil
}

// migrationsTable 每个服务独立的版本表, 服务名为空时使用 default
func migrationsTable(serviceName string) string {
	suffix := sanitize(serviceName)
	if suffix == "" {
		suffix = "default"
	}
	return "schema_migrations_" + suffix
}

// sanitize 将服务名转换为合法的表名后缀
func sanitize(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
