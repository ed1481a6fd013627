package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// zlogger routes gorm's statement log to the zerolog logger on the context.
// Statements are logged at debug level; slow ones and failures at warn.
type zlogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newLogger() gormlogger.Interface {
	return &zlogger{level: gormlogger.Warn, slowThreshold: 500 * time.Millisecond}
}

func (l *zlogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *zlogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		zerolog.Ctx(ctx).Info().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zlogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		zerolog.Ctx(ctx).Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zlogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		zerolog.Ctx(ctx).Error().Msg(fmt.Sprintf(msg, args...))
	}
}

func (l *zlogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	log := zerolog.Ctx(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		log.Warn().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}
