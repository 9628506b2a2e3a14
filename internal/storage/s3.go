package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// EvidenceStore keeps dose-evidence photos in an S3 bucket.
type EvidenceStore struct {
	Client        *s3.Client
	Bucket        string
	PublicBaseURL string
}

// NewEvidenceStore builds the store from the default AWS config chain.
func NewEvidenceStore(ctx context.Context, bucket, publicBaseURL string) (*EvidenceStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})

	return &EvidenceStore{Client: client, Bucket: bucket, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload stores one photo under the owner's prefix and returns its public URL.
func (e *EvidenceStore) Upload(ctx context.Context, userID uint64, filename, contentType string, body io.Reader) (string, error) {
	ext := path.Ext(filename)
	key := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)

	_, err := e.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &e.Bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}

	return e.PublicBaseURL + "/" + key, nil
}
