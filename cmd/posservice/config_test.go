package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		t.Setenv("POSSERVICE_STORAGE", "memory")

		c, err := parseConfig(logger)
		require.NoError(t, err)
		assert.Equal(t, ":8080", c.ServeRESTAddress)
		assert.Equal(t, "localhost:3306", c.DBHost)
		assert.Equal(t, 10, c.DBMaxConn)
		assert.Equal(t, time.Hour, c.DBConnMaxLifetime)
		assert.Equal(t, "pos-sales", c.KafkaTopic)
		assert.Equal(t, "clamp", c.NegativeTotalPolicy)
		assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	})

	t.Run("Log level", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		t.Setenv("POSSERVICE_LOG_LEVEL", "debug")

		_, err := parseConfig(logger)
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	})

	t.Run("Rejects unknown values", func(t *testing.T) {
		logger, _ := test.NewNullLogger()

		t.Setenv("POSSERVICE_STORAGE", "postgres")
		_, err := parseConfig(logger)
		assert.Error(t, err)

		t.Setenv("POSSERVICE_STORAGE", "memory")
		t.Setenv("POSSERVICE_LOG_LEVEL", "loud")
		_, err = parseConfig(logger)
		assert.Error(t, err)
	})
}

func TestMemoryContainer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	t.Setenv("POSSERVICE_STORAGE", "memory")
	c, err := parseConfig(logger)
	require.NoError(t, err)

	cont, err := newContainer(context.Background(), c, logger)
	require.NoError(t, err)
	defer cont.Close(logger)

	for _, path := range []string{"/api/health", "/metrics", "/api/v1/sales", "/api/v1/store"} {
		rec := httptest.NewRecorder()
		cont.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	c.NegativeTotalPolicy = "ignore"
	_, err = newContainer(context.Background(), c, logger)
	assert.Error(t, err)
}
