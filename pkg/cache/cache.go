package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// defaultOperationTimeout is the timeout for individual Redis operations
	defaultOperationTimeout = 5 * time.Second

	lessonTTL     = 30 * time.Minute
	lessonListTTL = 5 * time.Minute
	settingsTTL   = 2 * time.Hour
)

type Cache struct {
	client  *redis.Client
	enabled bool
}

func NewCache(addr, password string, enable bool) (*Cache, error) {
	if !enable {
		return &Cache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client:  client,
		enabled: true,
	}, nil
}

// operationContext creates a context with timeout for Redis operations
func (c *Cache) operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultOperationTimeout)
}

func (c *Cache) Enabled() bool {
	return c.enabled
}

func (c *Cache) Ping() error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Ping(ctx).Err()
}

func (c *Cache) Set(key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, expiration).Err()
}

func (c *Cache) Get(key string, dest interface{}) error {
	if !c.enabled {
		return fmt.Errorf("cache disabled")
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("key not found")
	} else if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) Delete(key string) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeletePattern(pattern string) error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) FlushAll() error {
	if !c.enabled {
		return nil
	}

	ctx, cancel := c.operationContext()
	defer cancel()

	return c.client.FlushAll(ctx).Err()
}

func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) CacheLesson(slug string, lesson interface{}) error {
	return c.Set(fmt.Sprintf("lesson:slug:%s", slug), lesson, lessonTTL)
}

func (c *Cache) GetCachedLesson(slug string, dest interface{}) error {
	return c.Get(fmt.Sprintf("lesson:slug:%s", slug), dest)
}

func (c *Cache) InvalidateLesson(slug string) error {
	return c.Delete(fmt.Sprintf("lesson:slug:%s", slug))
}

func (c *Cache) CacheLessonList(cacheKey string, lessons interface{}) error {
	return c.Set(cacheKey, lessons, lessonListTTL)
}

func (c *Cache) GetCachedLessonList(cacheKey string, dest interface{}) error {
	return c.Get(cacheKey, dest)
}

func (c *Cache) InvalidateLessonLists() error {
	return c.DeletePattern("lessons:*")
}

func (c *Cache) CacheSettings(settings interface{}) error {
	return c.Set("settings:site", settings, settingsTTL)
}

func (c *Cache) GetCachedSettings(dest interface{}) error {
	return c.Get("settings:site", dest)
}

func (c *Cache) InvalidateSettings() error {
	return c.Delete("settings:site")
}
