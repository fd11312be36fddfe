package worker_config

import (
	"time"

	"github.com/NordCoder/Herald/internal/obs"
	pginfra "github.com/NordCoder/Herald/internal/repository/postgres"
	"github.com/NordCoder/Herald/internal/senders/email"
	"github.com/NordCoder/Herald/internal/senders/webhook"
)

type DB struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

func (d DB) AsPGConfig() pginfra.Config {
	return pginfra.Config{
		URL:               d.DSN,
		MaxConns:          d.MaxConns,
		MinConns:          d.MinConns,
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		QueryTimeout:      d.QueryTimeout,
	}
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

type Topics struct {
	Primary string `mapstructure:"primary"`
	Retry   string `mapstructure:"retry"`
	DLQ     string `mapstructure:"dlq"`
}

type Retry struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

type Drain struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"version"`
}

func (l Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  l.Level,
		Pretty: l.Pretty,
		App:    "herald-worker",
		Env:    l.Env,
		Ver:    l.Ver,
	}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
}

func (o OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      o.Enable,
		Endpoint:    o.OTLPEndpoint,
		ServiceName: o.ServiceName,
		SampleRatio: o.SampleRatio,
	}
}

type Config struct {
	DB     DB             `mapstructure:"db"`
	Kafka  Kafka          `mapstructure:"kafka"`
	Topics Topics         `mapstructure:"topics"`
	Retry  Retry          `mapstructure:"retry"`
	Drain  Drain          `mapstructure:"drain"`
	SMTP   email.Config   `mapstructure:"smtp"`
	SMS    webhook.Config `mapstructure:"sms"`
	Push   webhook.Config `mapstructure:"push"`
	Server Server         `mapstructure:"server"`
	Log    Log            `mapstructure:"log"`
	OTEL   OTEL           `mapstructure:"otel"`
}
