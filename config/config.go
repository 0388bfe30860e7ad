package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Storage       StorageConfig       `mapstructure:"storage"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Anonymization AnonymizationConfig `mapstructure:"anonymization"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Document      DocumentConfig      `mapstructure:"document"`
	Watcher       WatcherConfig       `mapstructure:"watcher"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // 服务器主机
	Port         int           `mapstructure:"port"`          // 服务器端口
	Mode         string        `mapstructure:"mode"`          // 运行模式 debug/release
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 读取超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 写入超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // 日志级别
	File       string `mapstructure:"file"`         // 日志文件，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个文件大小上限
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧文件保留天数
	Compress   bool   `mapstructure:"compress"`     // 是否压缩旧文件
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"`        // 提供商：tongyi 或 openai
	Model         string        `mapstructure:"model"`           // 模型名称
	APIKey        string        `mapstructure:"api_key"`         // API密钥
	Endpoint      string        `mapstructure:"endpoint"`        // API端点
	Timeout       time.Duration `mapstructure:"timeout"`         // 单次解析超时
	MaxTokens     int           `mapstructure:"max_tokens"`      // 最大生成token数量
	Temperature   float32       `mapstructure:"temperature"`     // 采样温度
	EnableAIParse bool          `mapstructure:"enable_ai_parse"` // 是否启用大模型解析
	JSONMode      bool          `mapstructure:"json_mode"`       // 请求 JSON 对象输出
}

// AnonymizationConfig 匿名化配置
type AnonymizationConfig struct {
	PreserveDates bool   `mapstructure:"preserve_dates"` // 处理流程中保留日期
	PreserveTimes bool   `mapstructure:"preserve_times"` // 处理流程中保留时间
	NamesFile     string `mapstructure:"names_file"`     // 额外的人名词典
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // 是否启用任务队列
	Type          string `mapstructure:"type"`           // 队列类型
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis地址
	RedisPassword string `mapstructure:"redis_password"` // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`       // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency"`    // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit"`    // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay"`    // 重试延迟(秒)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型，目前仅支持 sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// DocumentConfig 报告处理配置
type DocumentConfig struct {
	MaxFileSizeMB     int           `mapstructure:"max_file_size_mb"`      // 上传大小上限
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`    // 单个报告处理超时
	DefaultCase       bool          `mapstructure:"default_case_fallback"` // 没有识别出案例时生成一条默认案例
}

// WatcherConfig 收件目录配置
type WatcherConfig struct {
	Enable     bool          `mapstructure:"enable"`     // 是否监听目录
	Dir        string        `mapstructure:"dir"`        // 收件目录
	Extensions []string      `mapstructure:"extensions"` // 处理的扩展名
	Debounce   time.Duration `mapstructure:"debounce"`   // 写入完成的等待时间
}

// Load 从 .env、配置文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err == nil {
			if err := v.WriteConfigAs(configPath); err != nil {
				log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
			}
		}
	} else if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 支持环境变量覆盖，例如 LLM_API_KEY 覆盖 llm.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expandEnvironmentVariables(&cfg)
	return &cfg, nil
}

// expandEnvironmentVariables 展开密钥类配置中的 ${VAR}
func expandEnvironmentVariables(cfg *Config) {
	for _, field := range []*string{
		&cfg.LLM.APIKey,
		&cfg.Storage.AccessKey,
		&cfg.Storage.SecretKey,
		&cfg.Cache.Password,
		&cfg.Queue.RedisPassword,
	} {
		*field = expandValue(*field)
	}
}

// expandValue 仅处理整值为 ${VAR} 的情况，环境变量为空时保留原值
func expandValue(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	if val := os.Getenv(s[2 : len(s)-1]); val != "" {
		return val
	}
	return s
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "6m")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/files")
	v.SetDefault("storage.bucket", "case-reports")
	v.SetDefault("storage.use_ssl", false)

	// LLM默认配置
	v.SetDefault("llm.provider", "tongyi")
	v.SetDefault("llm.model", "qwen-plus")
	v.SetDefault("llm.api_key", "${LLM_API_KEY}")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.enable_ai_parse", true)
	v.SetDefault("llm.json_mode", false)

	// 匿名化默认配置
	v.SetDefault("anonymization.preserve_dates", true)
	v.SetDefault("anonymization.preserve_times", true)
	v.SetDefault("anonymization.names_file", "")

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 86400)

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 30)

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/cases.db")

	// 报告处理默认配置
	v.SetDefault("document.max_file_size_mb", 50)
	v.SetDefault("document.processing_timeout", "5m")
	v.SetDefault("document.default_case_fallback", false)

	// 收件目录默认配置
	v.SetDefault("watcher.enable", false)
	v.SetDefault("watcher.dir", "./data/inbox")
	v.SetDefault("watcher.extensions", []string{".pdf", ".docx", ".txt"})
	v.SetDefault("watcher.debounce", "400ms")
}
