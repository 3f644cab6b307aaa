package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bootstrap 是 configs/config.yaml 的强类型映射。
// Kratos config.Scan 先把 YAML 合并为 JSON 再反序列化，因此字段使用 json tag；
// validate tag 由 validator 在默认值填充后统一校验。
type Bootstrap struct {
	Server        Server        `json:"server"`
	Data          Data          `json:"data"`
	Ledger        Ledger        `json:"ledger"`
	Ranking       Ranking       `json:"ranking"`
	Handlers      Handlers      `json:"handlers"`
	Observability Observability `json:"observability"`
}

// Server 描述 HTTP 监听配置。
type Server struct {
	HTTP HTTPServer `json:"http"`
}

// HTTPServer 描述 HTTP 服务器参数。
type HTTPServer struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data 聚合存储相关配置。
type Data struct {
	Postgres PostgreSQL `json:"postgres"`
	Redis    Redis      `json:"redis"`
}

// PostgreSQL 描述连接池与事务参数。
type PostgreSQL struct {
	DSN                      string      `json:"dsn" validate:"required"`
	MaxOpenConns             int32       `json:"max_open_conns" validate:"gte=0"`
	MinOpenConns             int32       `json:"min_open_conns" validate:"gte=0"`
	MaxConnLifetime          Duration    `json:"max_conn_lifetime"`
	MaxConnIdleTime          Duration    `json:"max_conn_idle_time"`
	HealthCheckPeriod        Duration    `json:"health_check_period"`
	Schema                   string      `json:"schema"`
	EnablePreparedStatements bool        `json:"enable_prepared_statements"`
	Transaction              Transaction `json:"transaction"`
}

// Transaction 映射到 txmanager.Config。
type Transaction struct {
	DefaultIsolation string   `json:"default_isolation"`
	DefaultTimeout   Duration `json:"default_timeout"`
	LockTimeout      Duration `json:"lock_timeout"`
	MaxRetries       int      `json:"max_retries" validate:"gte=0"`
	MetricsEnabled   *bool    `json:"metrics_enabled"`
}

// Redis 描述浏览去重缓存。Addr 为空时不启用 Redis，仅依赖 Postgres 标记表。
type Redis struct {
	Addr        string   `json:"addr"`
	DB          int      `json:"db" validate:"gte=0"`
	Password    string   `json:"password"`
	DialTimeout Duration `json:"dial_timeout"`
	ViewMarkTTL Duration `json:"view_mark_ttl"`
}

// Ledger 控制连读与重读策略。
type Ledger struct {
	TimeZone            string `json:"time_zone" validate:"iana_tz"`
	RereadExtendsStreak bool   `json:"reread_extends_streak"`
	MaxActivityDates    int    `json:"max_activity_dates" validate:"gte=0"`
}

// Ranking 控制 Rising 榜时间窗与热度门槛。
type Ranking struct {
	RisingWindow    Duration `json:"rising_window" validate:"gte=0"`
	RisingViewFloor *int64   `json:"rising_view_floor" validate:"omitempty,gte=0"`
	MaxLimit        int      `json:"max_limit" validate:"gte=0"`
}

// Handlers 描述各类 Handler 的默认超时。
type Handlers struct {
	DefaultTimeout Duration `json:"default_timeout" validate:"gte=0"`
	CommandTimeout Duration `json:"command_timeout" validate:"gte=0"`
	QueryTimeout   Duration `json:"query_timeout" validate:"gte=0"`
}

// Observability 对应 lingo-utils/observability 的配置。
type Observability struct {
	GlobalAttributes map[string]string `json:"global_attributes"`
	Tracing          *Tracing          `json:"tracing"`
	Metrics          *Metrics          `json:"metrics"`
}

// Tracing 描述追踪导出配置。
type Tracing struct {
	Enabled            bool              `json:"enabled"`
	Exporter           string            `json:"exporter"`
	Endpoint           string            `json:"endpoint"`
	Headers            map[string]string `json:"headers"`
	Insecure           bool              `json:"insecure"`
	SamplingRatio      float64           `json:"sampling_ratio" validate:"gte=0,lte=1"`
	BatchTimeout       Duration          `json:"batch_timeout"`
	ExportTimeout      Duration          `json:"export_timeout"`
	MaxQueueSize       int               `json:"max_queue_size"`
	MaxExportBatchSize int               `json:"max_export_batch_size"`
	Required           bool              `json:"required"`
}

// Metrics 描述指标导出配置。
type Metrics struct {
	Enabled             bool              `json:"enabled"`
	Exporter            string            `json:"exporter"`
	Endpoint            string            `json:"endpoint"`
	Headers             map[string]string `json:"headers"`
	Insecure            bool              `json:"insecure"`
	Interval            Duration          `json:"interval"`
	DisableRuntimeStats bool              `json:"disable_runtime_stats"`
	Required            bool              `json:"required"`
	ResourceAttributes  map[string]string `json:"resource_attributes"`
}

// Duration 支持 "5s"、"1h30m" 形式的字符串，也接受以秒为单位的数字。
type Duration time.Duration

// Std 返回 time.Duration。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalJSON 实现 json.Unmarshaler。
func (d *Duration) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*d = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", raw, err)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON 实现 json.Marshaler。
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
