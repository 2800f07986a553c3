// Package backup ships entry snapshots to an S3-compatible bucket
// (Cloudflare R2 in production) and brings them back.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ppcp-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	ErrBackupNotFound = errors.New("remote backup not found")
	ErrForeignKey     = errors.New("key is outside the backup prefix")
)

// ObjectClient is the subset of the S3 API used here
type ObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// RemoteBackup describes one stored snapshot
type RemoteBackup struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// RemoteStore keeps snapshots under a key prefix in one bucket
type RemoteStore struct {
	client ObjectClient
	bucket string
	prefix string
}

// NewRemoteStore builds an R2 client from the backup.remote config section
func NewRemoteStore(ctx context.Context, cfg *config.Config) (*RemoteStore, error) {
	rc := cfg.Backup.Remote
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			rc.AccessKey,
			rc.SecretKey,
			"",
		)),
		awsconfig.WithRegion(rc.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure R2 client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(rc.Endpoint)
		o.UsePathStyle = true
	})

	return NewRemoteStoreWithClient(client, rc.Bucket, rc.Prefix), nil
}

func NewRemoteStoreWithClient(client ObjectClient, bucket, prefix string) *RemoteStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &RemoteStore{client: client, bucket: bucket, prefix: prefix}
}

// Upload stores a snapshot under prefix+name and returns its key
func (s *RemoteStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// List returns the stored snapshots, newest first
func (s *RemoteStore) List(ctx context.Context) ([]RemoteBackup, error) {
	var out []RemoteBackup
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket: %w", err)
		}

		for _, obj := range page.Contents {
			b := RemoteBackup{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				b.LastModified = *obj.LastModified
			}
			if strings.HasSuffix(b.Key, ".json") {
				out = append(out, b)
			}
		}

		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].Key > out[j].Key
		}
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// Download fetches one snapshot. An empty key selects the newest.
func (s *RemoteStore) Download(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" {
		list, err := s.List(ctx)
		if err != nil {
			return nil, "", err
		}
		if len(list) == 0 {
			return nil, "", ErrBackupNotFound
		}
		key = list[0].Key
	}
	if !strings.HasPrefix(key, s.prefix) {
		return nil, "", ErrForeignKey
	}

	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", ErrBackupNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, key, nil
}
