// Package upload sends user images to the remote asset store after the
// account's usage quota admits them.
package upload

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"lumina/internal/domain"
	"lumina/internal/metrics"
)

// DefaultFolder is the remote folder uploads land in.
const DefaultFolder = "lumina-uploads"

// DefaultMaxBytes mirrors the 10 MB limit advertised to users.
const DefaultMaxBytes = 10 << 20

// File is an image payload to upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Credentials authorise exactly one direct upload and expire quickly.
type Credentials struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
}

// Issuer hands out fresh upload credentials.
type Issuer interface {
	Issue(ctx context.Context) (Credentials, error)
}

// PutRequest is what an asset store receives.
type PutRequest struct {
	File        File
	Folder      string
	Credentials Credentials
}

// Asset is the stored object.
type Asset struct {
	URL    string
	FileID string
}

// Store persists a file and returns its canonical URL. Failures wrap one of
// domain.ErrUploadInvalidRequest, ErrUploadServerFault or ErrUploadNetwork
// when the cause is known.
type Store interface {
	Put(ctx context.Context, req PutRequest) (Asset, error)
}

// QuotaGate admits uploads. Consume returns an error matching
// domain.ErrQuotaExceeded when the account is at its limit.
type QuotaGate interface {
	Check(ctx context.Context, userID string) (domain.UsageQuota, error)
	Consume(ctx context.Context, userID string) (domain.UsageQuota, error)
}

// Result is a successful upload.
type Result struct {
	URL   string
	Quota *domain.UsageQuota
}

// Options configures a Client.
type Options struct {
	Issuer   Issuer
	Store    Store
	Quota    QuotaGate
	Folder   string
	MaxBytes int64
	Logger   *zerolog.Logger
	Metrics  *metrics.Metrics
}

// Client runs the gated upload sequence.
type Client struct {
	issuer   Issuer
	store    Store
	quota    QuotaGate
	folder   string
	maxBytes int64
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewClient validates options and applies defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.Issuer == nil {
		return nil, errors.New("upload: issuer is required")
	}
	if opts.Store == nil {
		return nil, errors.New("upload: store is required")
	}
	c := &Client{
		issuer:   opts.Issuer,
		store:    opts.Store,
		quota:    opts.Quota,
		folder:   strings.Trim(strings.TrimSpace(opts.Folder), "/"),
		maxBytes: opts.MaxBytes,
		logger:   zerolog.New(io.Discard),
		metrics:  opts.Metrics,
	}
	if c.folder == "" {
		c.folder = DefaultFolder
	}
	if c.maxBytes <= 0 {
		c.maxBytes = DefaultMaxBytes
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str("component", "upload").Logger()
	}
	return c, nil
}

// Upload checks the file, passes the quota gate, obtains fresh credentials
// and stores the file. Nothing is retried.
func (c *Client) Upload(ctx context.Context, userID string, f File) (*Result, error) {
	if f.Body == nil {
		return nil, domain.ErrNoFile
	}
	if !IsImage(f.ContentType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotImage, f.ContentType)
	}
	if f.Size > c.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, f.Size)
	}

	var quota *domain.UsageQuota
	if c.quota != nil {
		if _, err := c.quota.Check(ctx, userID); err != nil {
			c.metrics.Upload("quota_error")
			return nil, fmt.Errorf("upload: check usage: %w", err)
		}
		q, err := c.quota.Consume(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				c.metrics.QuotaDenied()
				c.metrics.Upload("quota_exceeded")
				return nil, err
			}
			c.metrics.Upload("quota_error")
			return nil, fmt.Errorf("upload: update usage: %w", err)
		}
		quota = &q
	}

	creds, err := c.issuer.Issue(ctx)
	if err != nil {
		c.metrics.Upload("failed")
		return nil, fmt.Errorf("%w: issue credentials: %v", domain.ErrUploadFailed, err)
	}

	body := f.Body
	if f.Size <= 0 {
		body = &limitedReader{r: body, remaining: c.maxBytes}
	}
	f.Body = body
	asset, err := c.store.Put(ctx, PutRequest{File: f, Folder: c.folder, Credentials: creds})
	if err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			c.metrics.Upload("too_large")
			return nil, err
		}
		kind := Classify(err)
		c.metrics.Upload(outcomeLabel(kind))
		c.logger.Warn().Err(err).Str("user_id", userID).Str("file", f.Name).Msg("upload failed")
		if errors.Is(err, kind) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", kind, err)
	}
	if asset.URL == "" {
		c.metrics.Upload("failed")
		return nil, fmt.Errorf("%w: store returned no url", domain.ErrUploadFailed)
	}
	c.metrics.Upload("ok")
	c.logger.Info().Str("user_id", userID).Str("url", asset.URL).Msg("upload stored")
	return &Result{URL: asset.URL, Quota: quota}, nil
}

// Classify maps an upload error to its user-facing category.
func Classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrUploadInvalidRequest):
		return domain.ErrUploadInvalidRequest
	case errors.Is(err, domain.ErrUploadServerFault):
		return domain.ErrUploadServerFault
	case errors.Is(err, domain.ErrUploadNetwork):
		return domain.ErrUploadNetwork
	default:
		return domain.ErrUploadFailed
	}
}

// ClassifyStatus maps a store HTTP status to an upload error category.
func ClassifyStatus(status int) error {
	switch {
	case status >= 500:
		return domain.ErrUploadServerFault
	case status >= 400:
		return domain.ErrUploadInvalidRequest
	default:
		return domain.ErrUploadFailed
	}
}

func outcomeLabel(kind error) string {
	switch kind {
	case domain.ErrUploadInvalidRequest:
		return "invalid_request"
	case domain.ErrUploadServerFault:
		return "server_fault"
	case domain.ErrUploadNetwork:
		return "network"
	default:
		return "failed"
	}
}

// IsImage reports whether a MIME type denotes an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Sniff fills in a missing or generic content type from the first bytes of
// the body, returning a File whose Body still yields the full payload.
func Sniff(f File) File {
	ct := strings.TrimSpace(f.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		return f
	}
	if f.Body == nil {
		return f
	}
	br := bufio.NewReaderSize(f.Body, 512)
	head, _ := br.Peek(512)
	f.ContentType = http.DetectContentType(head)
	f.Body = br
	return f
}

// limitedReader fails once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, domain.ErrFileTooLarge
	}
	return n, err
}
