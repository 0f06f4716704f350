package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailtriage/pkg/config"
)

// ErrHeld 表示另一个轮询进程正持有同一个收件箱的锁
var ErrHeld = errors.New("run lock is held by another process")

// store 是 RunLock 用到的 redis 命令子集，方便测试替换
type store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// 只删除自己持有的锁
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// RunLock 防止同一收件箱的两次轮询重叠执行（重叠会导致重复自动回复）
type RunLock struct {
	rdb    store
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient 按配置创建 redis 客户端
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRunLock 基于 rdb 创建锁，ttl 限制崩溃的持有者能阻塞下一轮多久
func NewRunLock(rdb store, ttl time.Duration, logger *zap.Logger) *RunLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RunLock{rdb: rdb, ttl: ttl, logger: logger}
}

// Key 返回某个账号的锁 key
func Key(account string) string {
	return fmt.Sprintf("mailtriage:lock:%s", account)
}

// Acquire 尝试获取锁，成功时返回释放函数
// redis 不可用时不阻止处理（与去重器相同的降级策略），返回空操作的释放函数
func (l *RunLock) Acquire(ctx context.Context, account, owner string) (func(), error) {
	key := Key(account)

	ok, err := l.rdb.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		l.logger.Warn("Redis run lock unavailable, continuing without lock",
			zap.String("key", key),
			zap.Error(err),
		)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrHeld
	}

	release := func() {
		// 使用独立 context，避免调用方 ctx 已取消导致锁无法释放
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.rdb.Eval(releaseCtx, releaseScript, []string{key}, owner).Err(); err != nil {
			l.logger.Warn("Failed to release run lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	return release, nil
}
