package orgstatus

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Warn(format string, v ...interface{}) {}

func TestCache_Get_Miss(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	cache := New(db, 15*time.Second, nopLogger{})

	mockRedis.ExpectGet("orgstatus:1").RedisNil()

	data, err := cache.Get(context.Background(), 1)

	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestCache_SetThenGet(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	cache := New(db, 15*time.Second, nopLogger{})

	payload := []byte(`{"organizationId":1,"availableSlots":3}`)
	mockRedis.ExpectSet("orgstatus:1", payload, 15*time.Second).SetVal("OK")
	mockRedis.ExpectGet("orgstatus:1").SetVal(string(payload))

	ctx := context.Background()
	assert.NoError(t, cache.Set(ctx, 1, payload))

	data, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestCache_Invalidate(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	cache := New(db, 15*time.Second, nopLogger{})

	mockRedis.ExpectDel("orgstatus:7").SetVal(1)

	cache.Invalidate(context.Background(), 7)

	assert.NoError(t, mockRedis.ExpectationsWereMet())
}
