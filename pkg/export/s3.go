package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config - настройки выгрузки артефактов в S3
type S3Config struct {
	// Bucket - имя бакета
	Bucket string `yaml:"bucket"`
	// Prefix - префикс ключей объектов
	Prefix string `yaml:"prefix"`
	// Region - регион AWS
	Region string `yaml:"region"`
}

// Validate проверяет настройки
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	return nil
}

// S3Sink выгружает артефакты экспорта в S3 бакет.
// Креды берутся из стандартной цепочки AWS SDK.
type S3Sink struct {
	cfg      S3Config
	uploader *manager.Uploader
}

// NewS3Sink создает подключенный к бакету sink
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Sink{cfg: cfg, uploader: manager.NewUploader(client)}, nil
}

// Upload кладет артефакт в бакет и возвращает ключ объекта
func (s *S3Sink) Upload(ctx context.Context, res *Result) (string, error) {
	key := res.Filename
	if s.cfg.Prefix != "" {
		key = path.Join(s.cfg.Prefix, key)
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(res.Data),
		ContentType: aws.String(res.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	return key, nil
}
