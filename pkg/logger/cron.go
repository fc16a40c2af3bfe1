package logger

import (
	"context"
	"fmt"
)

// CronLogger adapts a Logger to the robfig/cron logging interface.
type CronLogger struct {
	L Logger
}

// Info logs routine scheduler messages at debug level; cron is chatty.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.L.Debug(context.Background(), msg, pairs(keysAndValues)...)
}

// Error logs scheduler failures, including recovered job panics.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.L.Error(context.Background(), msg, append(pairs(keysAndValues), Error(err))...)
}

func pairs(kv []interface{}) []Field {
	fields := make([]Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
