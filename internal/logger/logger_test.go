package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
}

func (suite *LoggerTestSuite) TestNewFileLoggerCreatesDirectory() {
	dir := filepath.Join(suite.T().TempDir(), "logs", "backtest")

	logger, err := NewFileLogger(dir, "backtest")
	suite.Require().NoError(err)

	logger.Info("session started")
	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
	suite.Contains(entries[0].Name(), "backtest_")
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}

	err := logger.Sync()
	suite.NoError(err)
}

func (suite *LoggerTestSuite) TestNopLogger() {
	logger := NewNop()

	// These should not panic
	logger.Info("test info message")
	logger.Warn("test warn message")
	logger.Error("test error message")
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestWithKeepsWrapperAndFields() {
	core, logs := observer.New(zapcore.InfoLevel)
	parent := &Logger{Logger: zap.New(core)}

	var child *Logger = parent.With(zap.String("symbol", "NIFTY"))
	child.Info("session started")

	suite.Require().Equal(1, logs.Len())
	suite.Equal("NIFTY", logs.All()[0].ContextMap()["symbol"])
}
