package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"routing_gateway/internal/models"
)

// S3WriterConfig configures where audit batches are archived
type S3WriterConfig struct {
	Bucket  string
	Region  string
	Prefix  string // e.g. "dispatch/"
	PodName string

	// Endpoint overrides the AWS endpoint for S3-compatible stores such as Minio
	Endpoint string
}

// S3Writer writes batches of dispatch records to S3 as JSON Lines files
type S3Writer struct {
	client  *s3.Client
	bucket  string
	prefix  string
	podName string
	logger  *Logger
	now     func() time.Time
}

// NewS3Writer creates a new S3 writer
func NewS3Writer(ctx context.Context, cfg S3WriterConfig) (*S3Writer, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Writer(client, cfg), nil
}

func newS3Writer(client *s3.Client, cfg S3WriterConfig) *S3Writer {
	return &S3Writer{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		podName: cfg.PodName,
		logger:  NewLogger("s3-writer"),
		now:     time.Now,
	}
}

// WriteBatch implements BatchWriter
func (w *S3Writer) WriteBatch(ctx context.Context, records []*models.DispatchRecord) error {
	_, err := w.PutBatch(ctx, records)
	return err
}

// PutBatch uploads records and returns the S3 key they were written to
func (w *S3Writer) PutBatch(ctx context.Context, records []*models.DispatchRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	key := w.objectKey(w.now().UTC())

	body, err := encodeJSONLines(records)
	if err != nil {
		return "", err
	}

	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("Wrote batch to S3", "key", key, "count", len(records), "bytes", len(body))
	return key, nil
}

// objectKey formats keys as prefix/YYYY/MM/DD/pod-YYYYMMDD-HHMMSS-nanos.jsonl
func (w *S3Writer) objectKey(now time.Time) string {
	return fmt.Sprintf("%s%04d/%02d/%02d/%s-%s-%d.jsonl",
		w.prefix,
		now.Year(),
		now.Month(),
		now.Day(),
		w.podName,
		now.Format("20060102-150405"),
		now.Nanosecond(),
	)
}

func encodeJSONLines(records []*models.DispatchRecord) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return nil, fmt.Errorf("failed to encode record %s: %w", record.ID, err)
		}
	}
	return buf.Bytes(), nil
}
