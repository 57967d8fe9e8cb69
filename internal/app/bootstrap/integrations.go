package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/docbook-ai/internal/chat"
	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/internal/notifications"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// BuildEmailSender selects the notification email mirror. It returns nil when
// mirroring is disabled or the provider is missing credentials.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notifications.EmailSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	senderCfg := notifications.SenderConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" || strings.TrimSpace(cfg.EmailFrom) == "" {
			logger.Warn("sendgrid email selected without api key or sender; mirror disabled")
			return nil
		}
		return notifications.NewSendGridSender(senderCfg, logger)
	case "ses":
		if awsCfg == nil || strings.TrimSpace(cfg.EmailFrom) == "" {
			logger.Warn("ses email selected without aws config or sender; mirror disabled")
			return nil
		}
		return notifications.NewSESSender(sesv2.NewFromConfig(*awsCfg), senderCfg, logger)
	case "log":
		return notifications.NewStubEmailSender(logger)
	}
	return nil
}

// BuildImageResolver returns the doctor photo URL resolver: presigned S3 GETs
// when a bucket is configured, a static base URL otherwise.
func BuildImageResolver(cfg *appconfig.Config, awsCfg *aws.Config) doctors.ImageURLResolver {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(cfg.DoctorImagesBucket) != "" && awsCfg != nil {
		client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		return doctors.NewS3ImageResolver(client, cfg.DoctorImagesBucket, cfg.ImageURLTTL)
	}
	if strings.TrimSpace(cfg.DoctorImagesBaseURL) != "" {
		return doctors.StaticImageResolver{BaseURL: cfg.DoctorImagesBaseURL}
	}
	return nil
}

// BuildChatQueue returns the reply job queue: SQS when configured and memory
// queues are off, an in-process channel when USE_MEMORY_QUEUE is set, or nil
// when replies should be generated inline.
func BuildChatQueue(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) chat.Queue {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.UseMemoryQueue && strings.TrimSpace(cfg.ChatQueueURL) != "" && awsCfg != nil {
		logger.Info("chat queue configured", "backend", "sqs")
		return chat.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ChatQueueURL)
	}
	if cfg.UseMemoryQueue {
		logger.Info("chat queue configured", "backend", "memory")
		return chat.NewMemoryQueue(256)
	}
	return nil
}
