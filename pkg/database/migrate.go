package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// requiredFunctions 校验器与考勤闩锁依赖的触发器函数
var requiredFunctions = []string{
	"touch_last_modified",
	"lock_collection_stamp",
	"bump_collection_stamp",
	"forbid_attendance_unlock",
}

// RunMigrations 应用所有未执行的迁移，并确认时间戳触发器已就位
// dirty 状态直接报错：触发器可能缺失，last_modified 将不再可信
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态 (version=%d)，请人工修复后重启", version)
	}

	if err := verifyFunctions(db); err != nil {
		return err
	}

	logger.Info("数据库迁移完成", zap.Uint("version", version))
	return nil
}

func verifyFunctions(db *sql.DB) error {
	for _, name := range requiredFunctions {
		var exists bool
		err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`, name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("检查触发器函数 %s 失败: %w", name, err)
		}
		if !exists {
			return fmt.Errorf("缺少触发器函数 %s", name)
		}
	}
	return nil
}
