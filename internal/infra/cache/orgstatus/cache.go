// Package orgstatus Redis-кэш витрины занятости организации
package orgstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// Cache кэш сериализованной витрины занятости
//
// Хранит готовый JSON-ответ по ключу организации. Инвалидация — best-effort DEL:
// недоступный Redis не должен ломать переходы бронирований, протухшую запись
// добьет TTL
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger Logger
}

// New создает новый экземпляр кэша
func New(client *redis.Client, ttl time.Duration, logger Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get возвращает закэшированную витрину организации
func (c *Cache) Get(ctx context.Context, organizationID int64) ([]byte, error) {
	data, err := c.client.Get(ctx, statusKey(organizationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("orgstatus cache: get org=%d: %w", organizationID, err)
	}
	return data, nil
}

// Set сохраняет витрину организации с TTL
func (c *Cache) Set(ctx context.Context, organizationID int64, payload []byte) error {
	if err := c.client.Set(ctx, statusKey(organizationID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("orgstatus cache: set org=%d: %w", organizationID, err)
	}
	return nil
}

// Invalidate удаляет витрину организации из кэша
// Вызывается после каждого перехода, меняющего занятость
func (c *Cache) Invalidate(ctx context.Context, organizationID int64) {
	if err := c.client.Del(ctx, statusKey(organizationID)).Err(); err != nil {
		c.logger.Warn("orgstatus cache: failed to invalidate org=%d: %v", organizationID, err)
	}
}

func statusKey(organizationID int64) string {
	return fmt.Sprintf("orgstatus:%d", organizationID)
}
