package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/athleon/academy-engine/models"
)

type S3ArchiverConfig struct {
	Endpoint        string // optional; empty means stock AWS endpoints
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

type s3Archiver struct {
	client *s3.Client
	bucket string
}

func NewS3Archiver(cfg S3ArchiverConfig) (SnapshotArchiver, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, errors.New("invalid snapshot archive configuration: credentials and bucket are required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(region),
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	sdkCfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for snapshot archive: %w", err)
	}

	return &s3Archiver{
		client: s3.NewFromConfig(sdkCfg),
		bucket: cfg.BucketName,
	}, nil
}

// Archive writes the snapshot as a JSON object keyed by tournament and
// snapshot id. Keys are never overwritten in practice because at most one
// snapshot exists per tournament.
func (a *s3Archiver) Archive(ctx context.Context, snapshot *models.FinalizationSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snapshot.ID, err)
	}

	key := fmt.Sprintf("snapshots/tournament-%d/%s.json", snapshot.TournamentID, snapshot.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive snapshot (key: %s): %w", key, err)
	}
	return nil
}
