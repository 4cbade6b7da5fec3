package observability

import "context"

type Logger interface {
	Trace(ctx context.Context, message string, fields ...interface{}) Logger

	Debug(ctx context.Context, message string, fields ...interface{}) Logger

	Info(ctx context.Context, message string, fields ...interface{}) Logger

	Warn(ctx context.Context, message string, err error, fields ...interface{}) Logger

	Error(ctx context.Context, message string, err error, fields ...interface{}) Logger

	Fatal(ctx context.Context, message string, err error, fields ...interface{}) Logger

	AddFieldsToContext(ctx context.Context, fields map[string]string) context.Context
}

// NopLogger descarta todos los mensajes. Se usa como default cuando no se inyecta logger.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (l *NopLogger) Trace(ctx context.Context, message string, fields ...interface{}) Logger {
	return l
}

func (l *NopLogger) Debug(ctx context.Context, message string, fields ...interface{}) Logger {
	return l
}

func (l *NopLogger) Info(ctx context.Context, message string, fields ...interface{}) Logger {
	return l
}

func (l *NopLogger) Warn(ctx context.Context, message string, err error, fields ...interface{}) Logger {
	return l
}

func (l *NopLogger) Error(ctx context.Context, message string, err error, fields ...interface{}) Logger {
	return l
}

func (l *NopLogger) Fatal(ctx context.Context, message string, err error, fields ...interface{}) Logger {
	return l
}

func (l *NopLogger) AddFieldsToContext(ctx context.Context, fields map[string]string) context.Context {
	return ctx
}
