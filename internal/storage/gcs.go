package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lca-platform/internal/config"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores supporting documents in a Google Cloud Storage bucket.
type GCS struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
}

// NewGCS initializes the client and verifies the bucket is reachable.
// Credential resolution prefers ADC; an explicit JSON blob can be supplied
// for local development.
func NewGCS(ctx context.Context, cfg config.StorageConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not accessible: %w", cfg.Bucket, err)
	}

	return &GCS{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (g *GCS) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return g.url(path), nil
}

func (g *GCS) Delete(ctx context.Context, path string) error {
	err := g.client.Bucket(g.bucket).Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) url(path string) string {
	if g.publicBaseURL != "" {
		return g.publicBaseURL + "/" + path
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, path)
}
