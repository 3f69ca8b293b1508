// Package storage uploads analysis artifacts to MinIO or any S3-compatible store.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// MinIOClient wraps MinIO operations
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string // Public URL for generating accessible URLs (e.g., https://minio.example.com)
	expiry    time.Duration
}

// NewMinIOClient creates a new MinIO client and makes sure the bucket exists
func NewMinIOClient(ctx context.Context, cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 || expiry > 7*24*time.Hour {
		// presigned URLs cannot outlive seven days
		expiry = 7 * 24 * time.Hour
	}

	client := &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
	}

	if err := client.ensureBucketWithPolicy(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// PublicPrefixes are the object prefixes served without credentials
var PublicPrefixes = []string{"wordcloud_", "embeddings/"}

// ensureBucketWithPolicy creates the bucket if needed and opens the artifact prefixes for reading
func (m *MinIOClient) ensureBucketWithPolicy(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	policy, err := readPolicy(m.bucket, PublicPrefixes)
	if err != nil {
		return err
	}
	if err := m.client.SetBucketPolicy(ctx, m.bucket, policy); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

// readPolicy builds an anonymous s3:GetObject policy limited to prefixes
func readPolicy(bucket string, prefixes []string) (string, error) {
	resources := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		resources = append(resources, fmt.Sprintf("arn:aws:s3:::%s/%s*", bucket, p))
	}
	doc := struct {
		Version   string            `json:"Version"`
		Statement []policyStatement `json:"Statement"`
	}{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  resources,
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode bucket policy: %w", err)
	}
	return string(b), nil
}

// UploadBytes uploads an in-memory artifact
func (m *MinIOClient) UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// GetFileURL returns a URL for an object. With a public URL configured the
// presigned URL is rewritten to go through it (e.g. MinIO behind Nginx).
func (m *MinIOClient) GetFileURL(ctx context.Context, objectName string) (string, error) {
	presigned, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, m.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	if m.publicURL == "" {
		return presigned.String(), nil
	}
	return rewriteHost(presigned, m.publicURL), nil
}

func rewriteHost(u *url.URL, publicURL string) string {
	pathAndQuery := u.EscapedPath()
	if u.RawQuery != "" {
		pathAndQuery += "?" + u.RawQuery
	}
	return publicURL + pathAndQuery
}

// Ping checks the bucket is reachable
func (m *MinIOClient) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}
