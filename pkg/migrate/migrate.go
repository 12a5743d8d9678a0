package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	// Dialect is fixed: the SQL files use Postgres enums, partial indexes and gen_random_uuid.
	Dialect = "postgres"
)

// Command is a goose verb accepted by the migrate binary.
type Command string

const (
	CommandUp      Command = "up"
	CommandDown    Command = "down"
	CommandStatus  Command = "status"
	CommandVersion Command = "version"
	CommandCreate  Command = "create"
	CommandCheck   Command = "validate"
	CommandModels  Command = "automigrate"
)

var knownCommands = []Command{
	CommandUp, CommandDown, CommandStatus, CommandVersion,
	CommandCreate, CommandCheck, CommandModels,
}

// ParseCommand rejects verbs the binary does not implement.
func ParseCommand(raw string) (Command, error) {
	for _, c := range knownCommands {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown migrate command %q", raw)
}

// NeedsDB reports whether the command talks to a database.
func (c Command) NeedsDB() bool {
	return c != CommandCreate && c != CommandCheck
}

// NeedsGoose reports whether the command runs the SQL files, which only
// Postgres can execute.
func (c Command) NeedsGoose() bool {
	return c == CommandUp || c == CommandDown || c == CommandStatus || c == CommandVersion
}

// Run executes a goose verb against db.
func Run(ctx context.Context, db *sql.DB, dir string, command Command, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, string(command), db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// AutoMigrateModels creates the schema from the gorm models. It is the sqlite
// path: the goose files are Postgres-only.
func AutoMigrateModels(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := goose.SetDialect(Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	if current == target {
		return nil
	}
	if current < target {
		err = goose.UpToContext(ctx, db, dir, target)
	} else {
		err = goose.DownToContext(ctx, db, dir, target)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}
