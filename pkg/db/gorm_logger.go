package db

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// GormConfig is the silent configuration the sqlite test harness uses.
func GormConfig() *gorm.Config {
	return newGormConfig(nil, 0)
}

// newGormConfig reports slow queries through the service logger; everything
// else GORM would print is dropped.
func newGormConfig(logg *logger.Logger, slow time.Duration) *gorm.Config {
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{
			LogLevel: gormlogger.Silent,
		}),
	}
	if logg != nil && slow > 0 {
		cfg.Logger = gormlogger.New(slowQueryWriter{logg: logg}, gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		})
	}
	return cfg
}

// slowQueryWriter adapts GORM's Printf-style writer to the structured logger.
type slowQueryWriter struct {
	logg *logger.Logger
}

func (w slowQueryWriter) Printf(format string, args ...any) {
	w.logg.Warn(context.Background(), "gorm: "+fmt.Sprintf(format, args...))
}
