// Package logger 封装 logrus，服务端输出到 stderr，客户端写入用户目录下的日志文件。
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

const maxLogSize = 10 * 1024 * 1024

var (
	std     = logrus.New()
	logFile *os.File
	logPath string
)

// Options 日志配置
type Options struct {
	Level  string // debug/info/warn/error
	JSON   bool   // 是否输出 JSON
	ToFile bool   // 写入 ~/.party-games/<FileName>
	// FileName 日志文件名，默认 debug.log
	FileName string
}

// Init 按配置初始化日志
func Init(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	std.SetLevel(level)

	if opts.JSON {
		std.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	}

	if !opts.ToFile {
		std.SetOutput(os.Stderr)
		return nil
	}

	name := opts.FileName
	if name == "" {
		name = "debug.log"
	}
	f, path, err := openLogFile(name)
	if err != nil {
		return err
	}
	logFile, logPath = f, path
	std.SetOutput(f)

	Infof("Logger initialized, log file: %s", logPath)
	return nil
}

// openLogFile 打开日志文件，超过 10MB 时先转存
func openLogFile(name string) (*os.File, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, ".party-games")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(logDir, name)
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		backupPath := filepath.Join(logDir, fmt.Sprintf("%s.%d", name, time.Now().Unix()))
		_ = os.Rename(path, backupPath)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	return f, path, nil
}

// SetOutput 替换输出（测试用）
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Close 关闭日志文件
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// L 返回底层 logger
func L() *logrus.Logger { return std }

// WithField 带字段的日志条目
func WithField(key string, value any) *logrus.Entry { return std.WithField(key, value) }

// WithFields 带多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry { return std.WithFields(fields) }

func Debugf(format string, args ...any) { std.Debugf(format, args...) }
func Infof(format string, args ...any)  { std.Infof(format, args...) }
func Warnf(format string, args ...any)  { std.Warnf(format, args...) }
func Errorf(format string, args ...any) { std.Errorf(format, args...) }

// LogPanic 记录 panic 及堆栈
func LogPanic(r any) {
	std.WithField("stack", string(debug.Stack())).Errorf("[PANIC] %v", r)
}

// GetLogPath 返回当前日志文件路径
func GetLogPath() string {
	return logPath
}
