package imagekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lumina/internal/domain"
	"lumina/internal/infra"
	"lumina/internal/upload"
)

// DefaultUploadURL is the ImageKit upload API endpoint.
const DefaultUploadURL = "https://upload.imagekit.io/api/v1/files/upload"

// ErrMissingKeys indicates that the client was configured without a key pair.
var ErrMissingKeys = errors.New("imagekit: public and private keys are required")

// Options configures the ImageKit client.
type Options struct {
	PublicKey      string
	PrivateKey     string
	UploadURL      string
	CredentialTTL  time.Duration
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client issues signed upload credentials and performs direct uploads.
type Client struct {
	signer     *upload.HMACSigner
	publicKey  string
	uploadURL  string
	httpClient *http.Client
	logger     *infra.Logger
}

type uploadResponse struct {
	URL    string `json:"url"`
	FileID string `json:"fileId"`
	Name   string `json:"name"`
}

type errorResponse struct {
	Message string `json:"message"`
	Help    string `json:"help"`
}

// NewClient constructs a client with defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	publicKey := strings.TrimSpace(opts.PublicKey)
	privateKey := strings.TrimSpace(opts.PrivateKey)
	if publicKey == "" || privateKey == "" {
		return nil, ErrMissingKeys
	}
	signer, err := upload.NewHMACSigner(publicKey, privateKey, opts.CredentialTTL)
	if err != nil {
		return nil, fmt.Errorf("imagekit: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	uploadURL := strings.TrimSpace(opts.UploadURL)
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		signer:     signer,
		publicKey:  publicKey,
		uploadURL:  uploadURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Issue returns fresh credentials for one direct upload.
func (c *Client) Issue(ctx context.Context) (upload.Credentials, error) {
	return c.signer.Issue(ctx)
}

// Put uploads the file with the credentials carried by the request.
func (c *Client) Put(ctx context.Context, req upload.PutRequest) (upload.Asset, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	name := req.File.Name
	if name == "" {
		name = "image"
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return upload.Asset{}, fmt.Errorf("imagekit: build form: %w", err)
	}
	if _, err := io.Copy(part, req.File.Body); err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			return upload.Asset{}, err
		}
		return upload.Asset{}, fmt.Errorf("imagekit: read file: %w", err)
	}
	publicKey := req.Credentials.PublicKey
	if publicKey == "" {
		publicKey = c.publicKey
	}
	fields := [][2]string{
		{"fileName", name},
		{"folder", req.Folder},
		{"publicKey", publicKey},
		{"signature", req.Credentials.Signature},
		{"expire", strconv.FormatInt(req.Credentials.Expire, 10)},
		{"token", req.Credentials.Token},
		{"useUniqueFileName", "true"},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return upload.Asset{}, fmt.Errorf("imagekit: build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return upload.Asset{}, fmt.Errorf("imagekit: build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return upload.Asset{}, fmt.Errorf("imagekit: %w: build request: %v", domain.ErrUploadInvalidRequest, err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return upload.Asset{}, fmt.Errorf("imagekit: %w: %v", domain.ErrUploadNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return upload.Asset{}, fmt.Errorf("imagekit: %w: read response: %v", domain.ErrUploadNetwork, err)
	}
	if resp.StatusCode >= 300 {
		kind := upload.ClassifyStatus(resp.StatusCode)
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return upload.Asset{}, fmt.Errorf("imagekit: %w: %s", kind, detail.Message)
		}
		return upload.Asset{}, fmt.Errorf("imagekit: %w: status %d", kind, resp.StatusCode)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return upload.Asset{}, fmt.Errorf("imagekit: decode response: %w", err)
	}
	if decoded.URL == "" {
		return upload.Asset{}, errors.New("imagekit: empty file url")
	}
	c.logger.Debug().
		Str("file_id", decoded.FileID).
		Str("url", decoded.URL).
		Msg("imagekit: uploaded file")
	return upload.Asset{URL: decoded.URL, FileID: decoded.FileID}, nil
}

var (
	_ upload.Issuer = (*Client)(nil)
	_ upload.Store  = (*Client)(nil)
)
