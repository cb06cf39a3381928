package transport

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the SES v2 operation used, narrowed for tests.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends raw MIME messages through the SES v2 API. The HTTP client is
// shared, so a connection is only a per-batch attachment cache.
type SES struct {
	client SendEmailAPI
	store  AttachmentStore
}

func NewSES(ctx context.Context, cfg SESConfig, store AttachmentStore) (*SES, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESWithClient(sesv2.NewFromConfig(awsCfg), store), nil
}

func NewSESWithClient(client SendEmailAPI, store AttachmentStore) *SES {
	return &SES{client: client, store: store}
}

func (s *SES) Open(ctx context.Context) (Connection, error) {
	return &sesConnection{client: s.client, files: newAttachmentCache(s.store)}, nil
}

type sesConnection struct {
	client SendEmailAPI
	files  *attachmentCache
}

func (c *sesConnection) SendBatch(ctx context.Context, emails []*OutboundEmail) (int, error) {
	return sendEach(ctx, "ses", emails, func(e *OutboundEmail) error {
		raw, err := compose(e, c.files)
		if err != nil {
			return err
		}
		_, err = c.client.SendEmail(ctx, &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(e.From.Address),
			Destination:      &types.Destination{ToAddresses: []string{e.To.Address}},
			Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
		})
		if err != nil {
			return fmt.Errorf("SES rejected email: %w", err)
		}
		return nil
	})
}

func (c *sesConnection) Close() error {
	return nil
}
