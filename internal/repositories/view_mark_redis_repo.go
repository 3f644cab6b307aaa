package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const viewMarkKeyPrefix = "reading:view:"

// RedisViewMarkRepository 使用 Redis 作为浏览去重的前置缓存。
//
// Redis 只挡住热路径上的重复浏览，权威判定仍由 reading.view_marks 主键给出；
// Redis 不可用时直接放行给 Postgres。
type RedisViewMarkRepository struct {
	client *goredis.Client
	ttl    time.Duration
	log    *log.Helper
}

// NewRedisViewMarkRepository 构造 Redis 浏览标记缓存。client 为 nil 时所有调用放行。
func NewRedisViewMarkRepository(client *goredis.Client, ttl time.Duration, logger log.Logger) *RedisViewMarkRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisViewMarkRepository{
		client: client,
		ttl:    ttl,
		log:    log.NewHelper(logger),
	}
}

func viewMarkKey(userID, chapterID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", viewMarkKeyPrefix, userID, chapterID)
}

// SeenRecently 查询 Redis 中是否存在浏览标记，返回 true 表示该用户近期已计过这次浏览。
// 只读不占位：标记在 Postgres 提交后由 Remember 写入，进程在两者之间崩溃不会吞掉浏览。
func (r *RedisViewMarkRepository) SeenRecently(ctx context.Context, userID, chapterID uuid.UUID) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, viewMarkKey(userID, chapterID)).Result()
	if err != nil {
		r.log.WithContext(ctx).Warnf("redis view mark lookup failed: user=%s chapter=%s err=%v", userID, chapterID, err)
		return false, err
	}
	return n > 0, nil
}

// Remember 在 Postgres 确认浏览标记后写入缓存。写入失败只记录日志，下次由主键去重。
func (r *RedisViewMarkRepository) Remember(ctx context.Context, userID, chapterID uuid.UUID) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.Set(ctx, viewMarkKey(userID, chapterID), 1, r.ttl).Err(); err != nil {
		r.log.WithContext(ctx).Warnf("redis view mark set failed: user=%s chapter=%s err=%v", userID, chapterID, err)
	}
}
