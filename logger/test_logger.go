package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestCtxLogger 测试专用 Logger，将日志记录到内存，方便在单元测试中断言
//
//	testLogger := logger.NewTestCtxLogger()
//	sig := signal.New[int](signal.WithLogger(testLogger))
//	assert.True(t, testLogger.HasLog("WARN", "listener returned error"))
type TestCtxLogger struct {
	store  *logStore
	preset []zap.Field
}

type logStore struct {
	mu   sync.RWMutex
	logs []LogEntry
}

// LogEntry 日志条目
type LogEntry struct {
	Level   string
	Message string
	TraceID string
	Fields  map[string]interface{}
}

// NewTestCtxLogger 创建测试用 Logger
func NewTestCtxLogger() *TestCtxLogger {
	return &TestCtxLogger{store: &logStore{}}
}

func (t *TestCtxLogger) record(ctx context.Context, level, msg string, fields []zap.Field) {
	all := make([]zap.Field, 0, len(t.preset)+len(fields))
	all = append(all, t.preset...)
	all = append(all, fields...)

	entry := LogEntry{
		Level:   level,
		Message: msg,
		TraceID: extractTraceIDFromContext(ctx, nil),
		Fields:  extractFieldsMap(all),
	}

	t.store.mu.Lock()
	t.store.logs = append(t.store.logs, entry)
	t.store.mu.Unlock()
}

// InfoCtx 记录 Info 级别日志
func (t *TestCtxLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "INFO", msg, fields)
}

// ErrorCtx 记录 Error 级别日志
func (t *TestCtxLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "ERROR", msg, fields)
}

// DebugCtx 记录 Debug 级别日志
func (t *TestCtxLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "DEBUG", msg, fields)
}

// WarnCtx 记录 Warn 级别日志
func (t *TestCtxLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "WARN", msg, fields)
}

// With 返回带预设字段的新 Logger，与原 Logger 共享日志存储
func (t *TestCtxLogger) With(fields ...zap.Field) *TestCtxLogger {
	preset := make([]zap.Field, 0, len(t.preset)+len(fields))
	preset = append(preset, t.preset...)
	preset = append(preset, fields...)
	return &TestCtxLogger{store: t.store, preset: preset}
}

// ============================================
// 断言辅助方法
// ============================================

// HasLog 检查是否存在指定级别和消息的日志
func (t *TestCtxLogger) HasLog(level, message string) bool {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for _, log := range t.store.logs {
		if log.Level == level && log.Message == message {
			return true
		}
	}
	return false
}

// HasLogWithField 检查是否存在指定级别、消息和字段的日志
func (t *TestCtxLogger) HasLogWithField(level, message, fieldKey string, fieldValue interface{}) bool {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for _, log := range t.store.logs {
		if log.Level == level && log.Message == message {
			if val, exists := log.Fields[fieldKey]; exists && val == fieldValue {
				return true
			}
		}
	}
	return false
}

// CountLogs 统计指定级别的日志数量
func (t *TestCtxLogger) CountLogs(level string) int {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	count := 0
	for _, log := range t.store.logs {
		if log.Level == level {
			count++
		}
	}
	return count
}

// Logs 返回所有日志的副本
func (t *TestCtxLogger) Logs() []LogEntry {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	logs := make([]LogEntry, len(t.store.logs))
	copy(logs, t.store.logs)
	return logs
}

// Clear 清空日志（用于测试隔离）
func (t *TestCtxLogger) Clear() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.logs = nil
}

// extractFieldsMap 将 zap.Field 编码为 map（用于测试断言）
func extractFieldsMap(fields []zap.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}
	return enc.Fields
}
