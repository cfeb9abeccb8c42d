package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"safecircle"`

	// 生产环境 CORS 白名单，逗号分隔
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// OpenTelemetry 配置，endpoint 为空时不上报
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"dev"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:""`
	OTELSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"safecircle"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"sfc"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 扫描器配置
	ScanIntervalMinutes int `env:"SCAN_INTERVAL_MINUTES" envDefault:"15"` // 漏打卡扫描间隔
	ScanConcurrency     int `env:"SCAN_CONCURRENCY" envDefault:"16"`      // 单次扫描的并发上限
	ScanTimeoutMinutes  int `env:"SCAN_TIMEOUT_MINUTES" envDefault:"10"`  // 单次扫描的超时

	// 短信服务配置
	// 注意：AccessKey 和 SecretKey 通过阿里云 SDK 的环境变量自动获取
	// 需要设置环境变量：ALIBABA_CLOUD_ACCESS_KEY_ID 和 ALIBABA_CLOUD_ACCESS_KEY_SECRET
	SMSProvider        string `env:"SMS_PROVIDER" envDefault:"aliyun"` // aliyun, mock
	SMSSignName        string `env:"SMS_SIGN_NAME"`
	SMSTemplateCode    string `env:"SMS_TEMPLATE_CODE"`         // 警报通知模板
	SMSCaptchaTemplate string `env:"SMS_CAPTCHA_TEMPLATE_CODE"` // 登录验证码模板

	// 外呼服务配置
	VoiceProvider     string `env:"VOICE_PROVIDER" envDefault:"aliyun"` // aliyun, mock
	VoiceCalledShowNo string `env:"VOICE_CALLED_SHOW_NUMBER"`           // 外呼显示号码
	VoiceTtsCode      string `env:"VOICE_TTS_CODE"`                     // 外呼 TTS 模板

	// 邮件服务配置
	EmailProvider  string `env:"EMAIL_PROVIDER" envDefault:"sendgrid"` // sendgrid, mock
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"SafeCircle"`
	EmailFromAddr  string `env:"EMAIL_FROM_ADDR" envDefault:"alerts@safecircle.app"`

	// 推送服务配置（推送网关，尽力而为通道）
	PushProvider   string `env:"PUSH_PROVIDER" envDefault:"gateway"` // gateway, mock
	PushGatewayURL string `env:"PUSH_GATEWAY_URL"`
	PushGatewayKey string `env:"PUSH_GATEWAY_KEY"`

	ProviderTimeoutSeconds int `env:"PROVIDER_TIMEOUT_SECONDS" envDefault:"10"` // 单次渠道调用超时

	// 加密配置
	EncryptionKey string `env:"ENCRYPTION_KEY"` // 用于加密手机号等敏感数据，32字节 AES-256
	PhoneHashSalt string `env:"PHONEHASH_SALT"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		if Cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required")
		}
		log.Printf("WARN: JWT_SECRET is not set, using insecure development secret")
		Cfg.JWTSecret = "safecircle-dev-secret"
	}

	if len(Cfg.EncryptionKey) != 32 {
		if Cfg.IsProduction() {
			log.Fatal("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
		}
		log.Printf("WARN: ENCRYPTION_KEY missing or not 32 bytes, using insecure development key")
		Cfg.EncryptionKey = "0123456789abcdef0123456789abcdef"
	}

	if Cfg.SMSSignName == "" {
		log.Printf("WARN: SMS_SIGN_NAME is not set, SMS service may not work properly")
	}
	if Cfg.SMSTemplateCode == "" {
		log.Printf("WARN: SMS_TEMPLATE_CODE is not set, SMS service may not work properly")
	}

	if Cfg.SendGridAPIKey == "" {
		log.Printf("WARN: SENDGRID_API_KEY is not set, email fallback channel will not work")
	}

	if Cfg.PushGatewayURL == "" {
		log.Printf("WARN: PUSH_GATEWAY_URL is not set, push notifications will not work")
	}

	if Cfg.VoiceTtsCode == "" {
		log.Printf("WARN: VOICE_TTS_CODE is not set, voice escalation calls may not work")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
