// Package data 管理 Postgres 之外的存储客户端（当前为 Redis 浏览去重缓存）。
package data

import (
	"context"
	"fmt"
	"time"

	loader "github.com/bionicotaku/lingo-services-reading/internal/infrastructure/config_loader"

	"github.com/go-kratos/kratos/v2/log"
	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Data wraps lower-level storage clients. Redis 为 nil 表示未启用缓存。
type Data struct {
	Redis *goredis.Client
}

// NewData constructs storage resources and returns a cleanup function.
// data.redis.addr 为空时跳过 Redis；连接失败同样降级为不启用，只记录告警。
func NewData(c *loader.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	d := &Data{}

	if c != nil && c.Redis.Addr != "" {
		client, err := newRedisClient(c.Redis)
		if err != nil {
			helper.Warnf("redis disabled: addr=%s err=%v", c.Redis.Addr, err)
		} else {
			helper.Infof("redis connected: addr=%s db=%d", c.Redis.Addr, c.Redis.DB)
			d.Redis = client
		}
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.Redis != nil {
			if err := d.Redis.Close(); err != nil {
				helper.Warnf("close redis: %v", err)
			}
		}
	}
	return d, cleanup, nil
}

func newRedisClient(cfg loader.Redis) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DB:          cfg.DB,
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout.Std(),
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ProvideRedisClient 暴露 Redis 客户端，可能为 nil。
func ProvideRedisClient(d *Data) *goredis.Client {
	if d == nil {
		return nil
	}
	return d.Redis
}

// ProvideViewMarkTTL 返回 Redis 浏览标记的过期时间。
func ProvideViewMarkTTL(c *loader.Data) time.Duration {
	if c == nil {
		return 0
	}
	return c.Redis.ViewMarkTTL.Std()
}
