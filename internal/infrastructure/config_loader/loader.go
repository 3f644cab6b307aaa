// Package loader 负责加载 configs/ 下的服务配置，应用环境变量覆盖并校验。
package loader

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"

	loginfra "github.com/bionicotaku/lingo-services-reading/internal/infrastructure/logger"

	"github.com/bionicotaku/lingo-utils/observability"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/caarlos0/env/v11"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
	Name     string // 编译期注入的服务名（可为空）
	Version  string // 编译期注入的版本号（可为空）
}

// ServiceMetadata 保存服务标识信息，供日志和可观测性组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// LoggerConfig 将服务元信息转换为日志配置。
func (m ServiceMetadata) LoggerConfig() loginfra.Config {
	return loginfra.Config{
		Service: m.Name,
		Version: m.Version,
		HostID:  m.InstanceID,
		Env:     m.Environment,
	}
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Bootstrap *Bootstrap
	ObsConfig observability.ObservabilityConfig
	Service   ServiceMetadata
	TxConfig  txmanager.Config
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As。
func (e BuildError) Unwrap() error {
	return e.Err
}

// envOverrides 是允许覆盖配置文件的环境变量。空值不覆盖。
type envOverrides struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	Port           string `env:"PORT"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	TimeZone       string `env:"READING_TIME_ZONE"`
	ServiceName    string `env:"SERVICE_NAME"`
	ServiceVersion string `env:"SERVICE_VERSION"`
	AppEnv         string `env:"APP_ENV"`
}

// ParseConfPath 解析 -conf 命令行参数并应用回退规则。
func ParseConfPath(fs *flag.FlagSet, args []string) (string, error) {
	var confPath string
	fs.StringVar(&confPath, "conf", "", "config path, eg: -conf configs/config.yaml")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return ResolveConfPath(confPath), nil
}

// ResolveConfPath 确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(envConfPath); v != "" {
		return v
	}
	return defaultConfPath
}

// Build 加载配置文件并构建 Bundle。
//
// 流程：加载 .env → 读取 YAML → 环境变量覆盖 → 填充默认值 → 校验 → 推导服务元信息。
func Build(params Params) (*Bundle, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, BuildError{Stage: "env", Err: err}
	}

	bootstrap, err := loadBootstrap(confPath, overrides)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Bootstrap: bootstrap,
		ObsConfig: toObservabilityConfig(bootstrap.Observability),
		Service:   buildServiceMetadata(params, overrides),
		TxConfig:  toTxManagerConfig(bootstrap.Data.Postgres.Transaction),
	}, nil
}

func loadBootstrap(confPath string, overrides envOverrides) (*Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(&bc, overrides)
	applyDefaults(&bc)

	if err := validate(&bc); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return &bc, nil
}

// applyEnvOverrides 用环境变量覆盖配置文件中的特定字段。
//
//   - DATABASE_URL 覆盖 data.postgres.dsn
//   - PORT 覆盖 server.http.addr 的端口部分（保留 host）
//   - REDIS_ADDR / REDIS_PASSWORD 覆盖 data.redis
//   - READING_TIME_ZONE 覆盖 ledger.time_zone
func applyEnvOverrides(bc *Bootstrap, o envOverrides) {
	if bc == nil {
		return
	}
	if o.DatabaseURL != "" {
		bc.Data.Postgres.DSN = o.DatabaseURL
	}
	if o.Port != "" {
		bc.Server.HTTP.Addr = replacePort(bc.Server.HTTP.Addr, o.Port)
	}
	if o.RedisAddr != "" {
		bc.Data.Redis.Addr = o.RedisAddr
	}
	if o.RedisPassword != "" {
		bc.Data.Redis.Password = o.RedisPassword
	}
	if o.TimeZone != "" {
		bc.Ledger.TimeZone = o.TimeZone
	}
}

func buildServiceMetadata(params Params, o envOverrides) ServiceMetadata {
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        firstNonEmpty(o.ServiceName, params.Name, defaultServiceName),
		Version:     firstNonEmpty(o.ServiceVersion, params.Version, defaultServiceVersion),
		Environment: firstNonEmpty(o.AppEnv, defaultEnvironment),
		InstanceID:  firstNonEmpty(host, defaultServiceName),
	}
}

// loadEnvFiles best-effort 加载 .env 文件，失败时忽略。
// godotenv 不覆盖已存在的环境变量，因此进程环境优先。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 按 confPath 目录 → 当前工作目录的顺序，返回存在的 .env.local/.env 文件。
func envFileCandidates(confPath string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range orderedDirs(confPath) {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}
	return dirs
}

func toObservabilityConfig(src Observability) observability.ObservabilityConfig {
	cfg := observability.ObservabilityConfig{
		GlobalAttributes: cloneStringMap(src.GlobalAttributes),
	}
	if tr := src.Tracing; tr != nil {
		cfg.Tracing = &observability.TracingConfig{
			Enabled:            tr.Enabled,
			Exporter:           tr.Exporter,
			Endpoint:           tr.Endpoint,
			Headers:            cloneStringMap(tr.Headers),
			Insecure:           tr.Insecure,
			SamplingRatio:      tr.SamplingRatio,
			BatchTimeout:       tr.BatchTimeout.Std(),
			ExportTimeout:      tr.ExportTimeout.Std(),
			MaxQueueSize:       tr.MaxQueueSize,
			MaxExportBatchSize: tr.MaxExportBatchSize,
			Required:           tr.Required,
		}
	}
	if mt := src.Metrics; mt != nil {
		cfg.Metrics = &observability.MetricsConfig{
			Enabled:             mt.Enabled,
			Exporter:            mt.Exporter,
			Endpoint:            mt.Endpoint,
			Headers:             cloneStringMap(mt.Headers),
			Insecure:            mt.Insecure,
			Interval:            mt.Interval.Std(),
			DisableRuntimeStats: mt.DisableRuntimeStats,
			Required:            mt.Required,
			ResourceAttributes:  cloneStringMap(mt.ResourceAttributes),
		}
	}
	return cfg
}

func toTxManagerConfig(tx Transaction) txmanager.Config {
	return txmanager.Config{
		DefaultIsolation: tx.DefaultIsolation,
		DefaultTimeout:   tx.DefaultTimeout.Std(),
		LockTimeout:      tx.LockTimeout.Std(),
		MaxRetries:       tx.MaxRetries,
		MetricsEnabled:   tx.MetricsEnabled,
	}
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// replacePort 替换地址中的端口部分，保留 host。
//   - "0.0.0.0:8000" -> "0.0.0.0:8080"
//   - "[::1]:8000"   -> "[::1]:8080"
func replacePort(addr, newPort string) string {
	if addr == "" {
		return "0.0.0.0:" + newPort
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "0.0.0.0:" + newPort
	}
	return net.JoinHostPort(host, newPort)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
