package config

import (
	"fmt"
	"time"
)

type Config struct {
	Resize     ResizeConfig     `json:"resize"`
	AWS        AWSConfig        `json:"aws"`
	FailureLog FailureLogConfig `json:"failure_log"`
	Redis      RedisConfig      `json:"redis"`
	Driver     DriverConfig     `json:"driver"`
	Server     ServerConfig     `json:"server"`
	Log        LogConfig        `json:"log"`
	Sentry     SentryConfig     `json:"sentry"`
}

type ResizeConfig struct {
	Width            int           `json:"width" env:"RESIZE_WIDTH" env-default:"600" validate:"gt=0,lte=16383"`
	Quality          int           `json:"quality" env:"WEBP_QUALITY" env-default:"80" validate:"gte=1,lte=100"`
	Timeout          time.Duration `json:"timeout" env:"TRANSCODE_TIMEOUT" env-default:"14s" validate:"gt=0"`
	Engine           string        `json:"engine" env:"TRANSCODE_ENGINE" env-default:"vips" validate:"oneof=vips native"`
	Workers          int           `json:"workers" env:"TRANSCODE_WORKERS" env-default:"2" validate:"gt=0"`
	DestBucketSuffix string        `json:"dest_bucket_suffix" env:"DEST_BUCKET_SUFFIX" env-default:"-processed"`
	SVGFrameRate     int           `json:"svg_frame_rate" env:"SVG_FRAME_RATE" env-default:"10" validate:"gt=0,lte=100"`
	SVGMaxFrames     int           `json:"svg_max_frames" env:"SVG_MAX_FRAMES" env-default:"50" validate:"gt=0"`
}

type AWSConfig struct {
	Region       string `json:"region" env:"REGION" env-default:"us-east-1" validate:"required"`
	Endpoint     string `json:"endpoint" env:"S3_ENDPOINT"`
	UsePathStyle bool   `json:"use_path_style" env:"S3_PATH_STYLE"`
	AccessKeyID  string `json:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretKey    string `json:"secret_key" env:"AWS_SECRET_ACCESS_KEY"`
	MaxAttempts  int    `json:"max_attempts" env:"AWS_MAX_ATTEMPTS" env-default:"3" validate:"gt=0"`
}

// FailureLogConfig selects where failed keys are appended. A Redis stream
// wins over a file path; with neither set recording is disabled.
type FailureLogConfig struct {
	Path   string `json:"path" env:"FAILURE_LOG"`
	Stream string `json:"stream" env:"FAILURE_LOG_STREAM"`
	MaxLen int64  `json:"max_len" env:"FAILURE_LOG_MAX_LEN" env-default:"0"`
}

func (c FailureLogConfig) Enabled() bool { return c.Path != "" || c.Stream != "" }

type RedisConfig struct {
	URL                 string        `json:"url" env:"REDIS_URL"`
	Password            string        `json:"password" env:"REDIS_PASSWORD"`
	DatabaseID          int           `json:"database_id" env:"REDIS_DB"`
	HealthCheckInterval time.Duration `json:"health_check_interval" env:"REDIS_HEALTH_INTERVAL" env-default:"30s"`
	DialTimeout         time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout         time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout        time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" env-default:"3s"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

func (c RedisConfig) Configured() bool { return c.URL != "" || len(c.Nodes) > 0 }

// DriverConfig drives the bucket and replay modes.
type DriverConfig struct {
	SourceBucket string        `json:"source_bucket" env:"SRC_BUCKET"`
	DestBucket   string        `json:"dest_bucket" env:"DEST_BUCKET"`
	Prefix       string        `json:"prefix" env:"SRC_PREFIX"`
	Delay        time.Duration `json:"delay" env:"DRIVER_DELAY" env-default:"100ms" validate:"gte=0"`
	Workers      int           `json:"workers" env:"DRIVER_WORKERS" env-default:"1" validate:"gt=0"`
	ReplayFile   string        `json:"replay_file" env:"REPLAY_FILE" env-default:"failed-out.txt"`
}

type ServerConfig struct {
	Port         int           `json:"port" env:"PORT" env-default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	MaxBodyMB    int64         `json:"max_body_mb" env:"SERVER_MAX_BODY_MB" env-default:"1"`
}

type LogConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" env-default:"json" validate:"oneof=json console"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn" env:"SENTRY_DSN"`
	Environment string `json:"environment" env:"ENVIRONMENT" env-default:"dev"`
}
