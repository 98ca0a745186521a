// Package log 持有进程级的 zap Logger。
package log

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func init() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
}

// Logger get current logger
func Logger() *zap.Logger {
	return logger
}

// SetLogger 替换当前 Logger。debug 为 true 时使用 console 编码与 Debug 级别，否则 JSON 编码与 Info 级别。
// path 非空时同时写入该文件（目录不存在时自动创建）。
func SetLogger(debug bool, path string) error {
	var (
		encoder zapcore.Encoder
		level   zapcore.Level
	)
	timeEncoder := zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.999999")
	if debug {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = timeEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
		level = zap.DebugLevel
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = timeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
		level = zap.InfoLevel
	}

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		writers = append(writers, zapcore.AddSync(f))
	}
	logger = zap.New(zapcore.NewCore(encoder, zap.CombineWriteSyncers(writers...), level))
	return nil
}

// ReplaceLogger 直接替换 Logger，主要用于测试中注入 zaptest/observer。
func ReplaceLogger(l *zap.Logger) {
	logger = l
}

// CloseLogger 刷新缓冲后关闭日志输出。
func CloseLogger() {
	_ = logger.Sync()
	logger = zap.NewNop()
}
