package charts

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"
)

// Uploader is the part of s3manager.Uploader the publisher uses.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Publisher copies rendered charts to an S3 bucket.
type Publisher struct {
	bucket   string
	prefix   string
	uploader Uploader
	log      logrus.FieldLogger
}

// NewPublisher builds a publisher from the default AWS credential chain.
func NewPublisher(bucket, prefix, region string, log logrus.FieldLogger) (*Publisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("charts: publish bucket is empty")
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("charts: aws session: %w", err)
	}
	return NewPublisherWithUploader(bucket, prefix, s3manager.NewUploader(sess), log), nil
}

// NewPublisherWithUploader wires a publisher to an existing uploader.
func NewPublisherWithUploader(bucket, prefix string, up Uploader, log logrus.FieldLogger) *Publisher {
	return &Publisher{bucket: bucket, prefix: prefix, uploader: up, log: log}
}

// Key returns the object key for a local file.
func (p *Publisher) Key(file string) string {
	return path.Join(p.prefix, filepath.Base(file))
}

// Publish uploads each file as image/png and returns the object locations.
// It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, files []string) ([]string, error) {
	locations := make([]string, 0, len(files))
	for _, file := range files {
		loc, err := p.upload(ctx, file)
		if err != nil {
			return locations, err
		}
		p.log.WithFields(logrus.Fields{"file": file, "location": loc}).Info("published chart")
		locations = append(locations, loc)
	}
	return locations, nil
}

func (p *Publisher) upload(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("charts: open %s: %w", file, err)
	}
	defer f.Close()

	out, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(p.Key(file)),
		Body:         f,
		ContentType:  aws.String("image/png"),
		CacheControl: aws.String("public, max-age=604800"),
	})
	if err != nil {
		return "", fmt.Errorf("charts: upload %s: %w", file, err)
	}
	return out.Location, nil
}
