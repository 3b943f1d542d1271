package utils

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient обертка над Redis клиентом для удобной работы
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient создает новый Redis клиент
func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{
		client: client,
		ctx:    context.Background(),
	}
}

// defaultTimeout ограничивает синхронные операции (хранилище терминала не должно зависать)
const defaultTimeout = 2 * time.Second

// HGet получает поле хеша. Второй результат false, если поля нет
func (r *RedisClient) HGet(key, field string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(r.ctx, defaultTimeout)
	defer cancel()

	value, err := r.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// HSet сохраняет поле хеша
func (r *RedisClient) HSet(key, field, value string) error {
	ctx, cancel := context.WithTimeout(r.ctx, defaultTimeout)
	defer cancel()
	return r.client.HSet(ctx, key, field, value).Err()
}

// HDel удаляет поля хеша и возвращает количество реально удаленных
func (r *RedisClient) HDel(key string, fields ...string) (int64, error) {
	ctx, cancel := context.WithTimeout(r.ctx, defaultTimeout)
	defer cancel()
	return r.client.HDel(ctx, key, fields...).Result()
}

// Delete удаляет ключ
func (r *RedisClient) Delete(key string) error {
	ctx, cancel := context.WithTimeout(r.ctx, defaultTimeout)
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

// Publish публикует сообщение в канал (Pub/Sub)
func (r *RedisClient) Publish(channel string, message string) error {
	ctx, cancel := context.WithTimeout(r.ctx, defaultTimeout)
	defer cancel()
	return r.client.Publish(ctx, channel, message).Err()
}

// Subscribe подписывается на канал и возвращает канал сообщений
func (r *RedisClient) Subscribe(channel string) (<-chan *redis.Message, func() error) {
	pubsub := r.client.Subscribe(r.ctx, channel)
	ch := pubsub.Channel()

	// Функция для закрытия подписки
	closeFn := func() error {
		return pubsub.Close()
	}

	return ch, closeFn
}
