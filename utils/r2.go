// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// R2Config is the Cloudflare R2 bucket images are written to.
type R2Config struct {
	AccountID    string
	AccessKeyID  string
	AccessSecret string
	Bucket       string
	CDNBaseURL   string
}

// R2Uploader stores game and carousel images in R2 and returns public URLs.
type R2Uploader struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewR2Uploader(ctx context.Context, rc R2Config) (*R2Uploader, error) {
	if rc.AccountID == "" || rc.AccessKeyID == "" || rc.AccessSecret == "" || rc.Bucket == "" {
		return nil, fmt.Errorf("R2 account, credentials and bucket are required")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", rc.AccountID)
	baseURL := strings.TrimRight(rc.CDNBaseURL, "/")
	if baseURL == "" {
		baseURL = endpoint + "/" + rc.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			rc.AccessKeyID, rc.AccessSecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Uploader{client: client, bucket: rc.Bucket, baseURL: baseURL}, nil
}

// Upload writes body under key and returns its public URL.
func (u *R2Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return u.baseURL + "/" + key, nil
}

// ImageKey builds a collision-free object key under prefix, keeping the file extension.
func ImageKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	return strings.TrimRight(prefix, "/") + "/" + uuid.NewString() + ext
}

// ReadFormFile buffers an uploaded multipart file.
func ReadFormFile(fh *multipart.FileHeader) (*bytes.Buffer, string, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return buf, ct, nil
}
