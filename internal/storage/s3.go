package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"lumina/internal/domain"
	"lumina/internal/upload"
)

// S3Options configures an S3Store.
type S3Options struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint (MinIO, R2, tests). Path-style
	// addressing is used when set.
	Endpoint      string
	PublicBaseURL string
	Folder        string
	TTL           time.Duration
	HTTPClient    *http.Client
}

// S3Store issues presigned PUT URLs as upload credentials and uploads
// through them. The presigned URL travels in Credentials.Signature and the
// object key in Credentials.Token.
type S3Store struct {
	presign    *s3.PresignClient
	bucket     string
	folder     string
	publicBase string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewS3Store loads the AWS configuration and builds the presign client.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	folder := strings.Trim(strings.TrimSpace(opts.Folder), "/")
	if folder == "" {
		folder = upload.DefaultFolder
	}
	publicBase := strings.TrimRight(opts.PublicBaseURL, "/")
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return &S3Store{
		presign:    s3.NewPresignClient(client),
		bucket:     opts.Bucket,
		folder:     folder,
		publicBase: publicBase,
		ttl:        ttl,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Issue presigns a PUT for a fresh object key.
func (s *S3Store) Issue(ctx context.Context) (upload.Credentials, error) {
	key := path.Join(s.folder, uuid.NewString())
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.ttl
	})
	if err != nil {
		return upload.Credentials{}, fmt.Errorf("storage: presign put: %w", err)
	}
	return upload.Credentials{
		Token:     key,
		Expire:    s.now().Add(s.ttl).Unix(),
		Signature: req.URL,
		PublicKey: s.bucket,
	}, nil
}

// Put uploads the file to the presigned URL in the request credentials.
func (s *S3Store) Put(ctx context.Context, req upload.PutRequest) (upload.Asset, error) {
	target := req.Credentials.Signature
	key := req.Credentials.Token
	if target == "" || key == "" {
		return upload.Asset{}, fmt.Errorf("storage: %w: missing presigned url", domain.ErrUploadInvalidRequest)
	}
	data, err := io.ReadAll(req.File.Body)
	if err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			return upload.Asset{}, err
		}
		return upload.Asset{}, fmt.Errorf("storage: read file: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return upload.Asset{}, fmt.Errorf("storage: %w: build request: %v", domain.ErrUploadInvalidRequest, err)
	}
	if req.File.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.File.ContentType)
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return upload.Asset{}, fmt.Errorf("storage: %w: %v", domain.ErrUploadNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return upload.Asset{}, fmt.Errorf("storage: %w: s3 status %d", upload.ClassifyStatus(resp.StatusCode), resp.StatusCode)
	}
	return upload.Asset{URL: s.publicBase + "/" + key, FileID: key}, nil
}

var (
	_ upload.Issuer = (*S3Store)(nil)
	_ upload.Store  = (*S3Store)(nil)
)
