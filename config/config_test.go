package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "memory", conf.StoreDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, conf.KafkaBrokers)
}

func TestNewDefaults(t *testing.T) {
	conf := New()

	assert.Equal(t, 256, conf.NotifyQueueSize)
	assert.Equal(t, 2, conf.NotifyWorkers)
	assert.Equal(t, 30, conf.TrackingRetentionDays)
	assert.Equal(t, 10*time.Second, conf.QueryTimeout)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("error it borked", http.StatusBadRequest, rr, errors.New("pq: relation cfs_calls does not exist"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"response":{"message":"error it borked"}}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "relation")
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(2))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(0))
}
