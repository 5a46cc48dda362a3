package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"lumina/internal/domain"
	"lumina/internal/editor"
	"lumina/internal/i18n"
	"lumina/internal/infra"
	"lumina/internal/metrics"
	"lumina/internal/middleware"
	"lumina/internal/providers/payments"
	"lumina/internal/upload"
)

// QuotaService reads and consumes upload quota.
type QuotaService interface {
	Get(ctx context.Context, userID string) (domain.UsageQuota, error)
	Consume(ctx context.Context, userID string) (domain.UsageQuota, error)
}

// CheckoutCreator opens payment sessions for plan upgrades.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, customer payments.Customer) (string, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Config     *infra.Config
	Logger     *infra.Logger
	Editor     *editor.Manager
	Uploader   editor.Uploader
	Issuer     upload.Issuer
	Quota      QuotaService
	Checkout   CheckoutCreator
	Catalog    editor.CatalogSource
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return strings.TrimSpace(middleware.UserIDFromContext(r.Context()))
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	l := zerolog.Ctx(r.Context())
	if l.GetLevel() == zerolog.Disabled && a.Logger != nil {
		return a.Logger
	}
	return l
}

func (a *App) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

// fail writes the localised error response for err.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	message := i18n.ErrorMessage(locale, err)

	var limit *domain.LimitReachedError
	if errors.As(err, &limit) {
		a.json(w, http.StatusForbidden, map[string]any{
			"error":      "quota_exceeded",
			"message":    message,
			"usageCount": limit.Quota.UsageCount,
			"usageLimit": limit.Quota.UsageLimit,
			"plan":       limit.Quota.Plan,
			"canUpload":  false,
			"upgrade":    true,
		})
		return
	}

	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	a.error(w, status, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusForbidden, "quota_exceeded"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, domain.ErrNotImage), errors.Is(err, domain.ErrNoFile):
		return http.StatusBadRequest, "not_image"
	case errors.Is(err, domain.ErrUnknownEffect):
		return http.StatusBadRequest, "unknown_effect"
	case errors.Is(err, domain.ErrEmptyPrompt):
		return http.StatusBadRequest, "empty_prompt"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, domain.ErrNoImage):
		return http.StatusConflict, "no_image"
	case errors.Is(err, domain.ErrNoPendingPrompt):
		return http.StatusConflict, "no_pending_prompt"
	case errors.Is(err, domain.ErrNothingToExport):
		return http.StatusConflict, "nothing_to_export"
	case errors.Is(err, domain.ErrNoComparison):
		return http.StatusConflict, "no_comparison"
	case errors.Is(err, domain.ErrUploadInvalidRequest):
		return http.StatusBadRequest, "upload_invalid_request"
	case errors.Is(err, domain.ErrUploadServerFault):
		return http.StatusBadGateway, "upload_server_fault"
	case errors.Is(err, domain.ErrUploadNetwork):
		return http.StatusBadGateway, "upload_network"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway, "upload_failed"
	case errors.Is(err, payments.ErrNotConfigured):
		return http.StatusServiceUnavailable, "checkout_unavailable"
	case errors.Is(err, domain.ErrCheckoutFailed):
		return http.StatusBadGateway, "checkout_failed"
	case errors.Is(err, editor.ErrSessionClosed):
		return http.StatusGone, "session_closed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// readFile extracts the multipart "file" field of r. The returned cleanup
// releases the form's temporary files.
func (a *App) readFile(w http.ResponseWriter, r *http.Request) (upload.File, func(), error) {
	maxBytes := int64(upload.DefaultMaxBytes)
	if a.Config != nil && a.Config.MaxUploadBytes > 0 {
		maxBytes = a.Config.MaxUploadBytes
	}
	// Headroom for the multipart envelope; the exact file size check is the
	// upload client's.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload.File{}, nil, domain.ErrFileTooLarge
		}
		return upload.File{}, nil, domain.ErrNoFile
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return upload.File{}, nil, domain.ErrNoFile
	}
	f := upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return upload.Sniff(f), cleanup, nil
}
