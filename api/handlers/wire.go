package handlers

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/api/scheduler"
	"github.com/linesmerrill/cfs-intake-api/blobstore"
	"github.com/linesmerrill/cfs-intake-api/config"
	"github.com/linesmerrill/cfs-intake-api/databases"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

func newStore(ctx context.Context, conf *config.Config) (databases.Store, error) {
	switch conf.StoreDriver {
	case "postgres":
		return databases.NewPostgres(ctx, conf.DatabaseURL)
	case "mongo":
		client, err := databases.NewClient(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("failed to create mongo client: %w", err)
		}
		return databases.NewMongo(databases.NewDatabase(conf, client)), nil
	case "memory":
		zap.S().Warn("using the in-memory store, data is lost on restart")
		return databases.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", conf.StoreDriver)
}

func newBlobStore(ctx context.Context, conf *config.Config, logger *zap.Logger) (blobstore.Store, error) {
	switch conf.BlobDriver {
	case "s3":
		return blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:       conf.S3Bucket,
			Region:       conf.S3Region,
			Endpoint:     conf.S3Endpoint,
			AccessKey:    conf.S3AccessKeyID,
			SecretKey:    conf.S3SecretAccessKey,
			UsePathStyle: conf.S3UsePathStyle,
		}, logger.Named("s3"))
	case "cloudinary":
		return blobstore.NewCloudinary(conf.CloudinaryCloudName, conf.CloudinaryAPIKey, conf.CloudinaryAPISecret, conf.CloudinaryFolder)
	case "memory":
		return blobstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown blob driver %q", conf.BlobDriver)
}

func newSender(conf *config.Config, logger *zap.Logger) (notify.Sender, func() error, error) {
	noop := func() error { return nil }
	switch conf.NotifyDriver {
	case "log":
		return notify.LogSender{Logger: logger.Named("notify")}, noop, nil
	case "kafka":
		k, err := notify.NewKafkaSender(conf.KafkaBrokers, conf.NotifyTopic)
		if err != nil {
			return nil, nil, err
		}
		return k, k.Close, nil
	case "direct":
		d := notify.DirectSender{}
		if conf.SendgridAPIKey != "" {
			d.Email = notify.NewSendgridEmail(conf.SendgridAPIKey, conf.NotifyFromName, conf.NotifyFromEmail)
		}
		if conf.SMSGatewayURL != "" {
			d.SMS = notify.NewRestySMS(conf.SMSGatewayURL, conf.SMSGatewayToken)
		}
		return d, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown notify driver %q", conf.NotifyDriver)
}

func newRedisLocker(url string) (scheduler.Locker, func() error, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	return scheduler.NewRedisLocker(client, "cfs:lock:"), client.Close, nil
}
