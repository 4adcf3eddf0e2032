package config

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/logging"
	"github.com/linesmerrill/cfs-intake-api/models"
)

// Config holds the project config values
type Config struct {
	Env          string
	Port         string
	BaseUrl      string
	QueryTimeout time.Duration

	StoreDriver  string
	DatabaseURL  string
	Url          string
	DatabaseName string

	BlobDriver          string
	S3Bucket            string
	S3Region            string
	S3Endpoint          string
	S3AccessKeyID       string
	S3SecretAccessKey   string
	S3UsePathStyle      bool
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	NotifyDriver    string
	NotifyQueueSize int
	NotifyWorkers   int
	KafkaBrokers    []string
	NotifyTopic     string
	SendgridAPIKey  string
	NotifyFromEmail string
	NotifyFromName  string
	SMSGatewayURL   string
	SMSGatewayToken string
	TrackingBaseURL string

	RedisURL                 string
	RedisInvalidationChannel string

	JWTSecret string
	JWTTTL    time.Duration

	TrackingSweepSchedule string
	TrackingRetentionDays int

	ServiceAccounts []ServiceAccount
}

// ServiceAccount is a basic-auth principal allowed to mint bearer tokens. Password is
// a bcrypt hash produced by scripts/hash_service_account.go.
type ServiceAccount struct {
	Name           string   `mapstructure:"name"`
	PasswordHash   string   `mapstructure:"password_hash"`
	ProfileID      int64    `mapstructure:"profile_id"`
	OrganizationID *int64   `mapstructure:"organization_id"`
	Roles          []string `mapstructure:"roles"`
}

// New sets up all config related services. Values come from the environment, then an
// optional config.yaml, then built-in defaults.
func New() *Config {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//setup zap logger and replace default logger
	logger, err := setLogger(v.GetString("ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.S().Warnw("failed to read config file", "error", err)
		}
	}

	c := &Config{
		Env:          v.GetString("ENV"),
		Port:         v.GetString("PORT"),
		BaseUrl:      v.GetString("BASE_URL"),
		QueryTimeout: v.GetDuration("QUERY_TIMEOUT"),

		StoreDriver:  v.GetString("STORE_DRIVER"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		Url:          v.GetString("DB_URI"),
		DatabaseName: v.GetString("DB_NAME"),

		BlobDriver:          v.GetString("BLOB_DRIVER"),
		S3Bucket:            v.GetString("S3_BUCKET"),
		S3Region:            v.GetString("S3_REGION"),
		S3Endpoint:          v.GetString("S3_ENDPOINT"),
		S3AccessKeyID:       v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:   v.GetString("S3_SECRET_ACCESS_KEY"),
		S3UsePathStyle:      v.GetBool("S3_USE_PATH_STYLE"),
		CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    v.GetString("CLOUDINARY_FOLDER"),

		NotifyDriver:    v.GetString("NOTIFY_DRIVER"),
		NotifyQueueSize: v.GetInt("NOTIFY_QUEUE_SIZE"),
		NotifyWorkers:   v.GetInt("NOTIFY_WORKERS"),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
		NotifyTopic:     v.GetString("NOTIFY_TOPIC"),
		SendgridAPIKey:  v.GetString("SENDGRID_API_KEY"),
		NotifyFromEmail: v.GetString("NOTIFY_FROM_EMAIL"),
		NotifyFromName:  v.GetString("NOTIFY_FROM_NAME"),
		SMSGatewayURL:   v.GetString("SMS_GATEWAY_URL"),
		SMSGatewayToken: v.GetString("SMS_GATEWAY_TOKEN"),
		TrackingBaseURL: v.GetString("PUBLIC_TRACKING_URL"),

		RedisURL:                 v.GetString("REDIS_URL"),
		RedisInvalidationChannel: v.GetString("REDIS_INVALIDATION_CHANNEL"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		TrackingSweepSchedule: v.GetString("TRACKING_SWEEP_SCHEDULE"),
		TrackingRetentionDays: v.GetInt("TRACKING_RETENTION_DAYS"),
	}

	if err := v.UnmarshalKey("service_accounts", &c.ServiceAccounts); err != nil {
		zap.S().Warnw("failed to decode service accounts", "error", err)
	}

	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "local")
	v.SetDefault("PORT", "8080")
	v.SetDefault("QUERY_TIMEOUT", 10*time.Second)
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DB_NAME", "cfs")
	v.SetDefault("BLOB_DRIVER", "s3")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("CLOUDINARY_FOLDER", "cfs")
	v.SetDefault("NOTIFY_DRIVER", "log")
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_TOPIC", "cfs.notifications")
	v.SetDefault("NOTIFY_FROM_NAME", "Community Intake")
	v.SetDefault("REDIS_INVALIDATION_CHANNEL", "cfs:invalidations")
	v.SetDefault("JWT_TTL", 12*time.Hour)
	v.SetDefault("TRACKING_SWEEP_SCHEDULE", "CRON_TZ=UTC 30 3 * * *")
	v.SetDefault("TRACKING_RETENTION_DAYS", 30)
}

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(logging.ForEnvironment(env))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// given message, status code and err. Only message reaches the caller.
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	if err != nil {
		zap.S().With("error", err).Error(message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(models.ErrorMessageResponse{Response: models.MessageError{Message: message}})
}
