package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache 缓存接口
// 用于保存大模型解析结果等可重复计算的数据
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 创建缓存实例，未注册的类型回退到内存缓存
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	Type            string        // "memory" 或 "redis"
	RedisAddr       string        // Redis地址
	RedisPassword   string        // Redis密码
	RedisDB         int           // Redis数据库编号
	KeyPrefix       string        // Redis键前缀，Clear 只清理该前缀下的键
	DefaultTTL      time.Duration // 默认过期时间
	CleanupInterval time.Duration // 内存缓存清理间隔
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		KeyPrefix:       "case-extractor",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// 缓存键前缀
const (
	PrefixCaseParse = "caseparse" // 大模型案例解析结果
)

// GenerateCacheKey 用冒号连接前缀与各部分
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// ContentKey 按内容的 sha256 生成缓存键，避免把原文写进键名
func ContentKey(prefix, content string, parts ...string) string {
	sum := sha256.Sum256([]byte(content))
	return GenerateCacheKey(prefix, append(parts, hex.EncodeToString(sum[:]))...)
}
