package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	log := NewLogger("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerParsesLevel(t *testing.T) {
	log := NewLogger("debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestRecommendationLoggerGeneration(t *testing.T) {
	log, buf := setupTestLogger()
	recLogger := NewRecommendationLogger(log)

	recLogger.LogGeneration("pub_001", 7, 12, 3, 150.0)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "pub_001", logEntry["publisher_id"])
	assert.Equal(t, "recommendation", logEntry["component"])
	assert.Equal(t, float64(3), logEntry["recommendations_emitted"])
}

func TestRecommendationLoggerTransition(t *testing.T) {
	log, buf := setupTestLogger()
	recLogger := NewRecommendationLogger(log)

	recLogger.LogTransition("rec_123", "pending", "implemented", "ops@example.com")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "rec_123", logEntry["recommendation_id"])
	assert.Equal(t, "implemented", logEntry["to_status"])
	assert.Equal(t, "transition", logEntry["event_type"])
}

func TestRecommendationLoggerImpactMeasurement(t *testing.T) {
	log, buf := setupTestLogger()
	recLogger := NewRecommendationLogger(log)

	recLogger.LogImpactMeasurement("rec_123", 10.0, 12.5, 2.5, 25.0)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(25), logEntry["percent_change"])
	assert.Equal(t, "impact_measurement", logEntry["event_type"])
}
