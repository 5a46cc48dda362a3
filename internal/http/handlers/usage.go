package handlers

import (
	"errors"
	"net/http"

	"lumina/internal/domain"
	"lumina/internal/middleware"
	"lumina/internal/providers/payments"
)

// UploadAuth issues single-use credentials for a direct upload.
func (a *App) UploadAuth(w http.ResponseWriter, r *http.Request) {
	if a.Issuer == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "uploads are not configured")
		return
	}
	creds, err := a.Issuer.Issue(r.Context())
	if err != nil {
		a.logger(r).Error().Err(err).Msg("issue upload credentials")
		a.error(w, http.StatusInternalServerError, "internal", "failed to issue upload credentials")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	a.json(w, http.StatusOK, creds)
}

// Usage returns the caller's quota.
func (a *App) Usage(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	q, err := a.Quota.Get(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, q)
}

// ConsumeUsage records one upload, or answers 403 with the counts when the
// plan limit is reached.
func (a *App) ConsumeUsage(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	q, err := a.Quota.Consume(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"usageCount": q.UsageCount,
		"usageLimit": q.UsageLimit,
		"plan":       q.Plan,
		"canUpload":  q.CanUpload,
	})
}

// DirectUpload runs the gated upload outside of an editor session.
func (a *App) DirectUpload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Uploader == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "uploads are not configured")
		return
	}
	f, cleanup, err := a.readFile(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer cleanup()

	res, err := a.Uploader.Upload(r.Context(), userID, f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	body := map[string]any{"url": res.URL}
	if res.Quota != nil {
		body["usage"] = res.Quota
	}
	a.json(w, http.StatusCreated, body)
}

// CreateCheckoutSession starts a Pro plan checkout for the caller.
func (a *App) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Checkout == nil {
		a.fail(w, r, payments.ErrNotConfigured)
		return
	}
	url, err := a.Checkout.CreateSession(r.Context(), payments.Customer{
		UserID: userID,
		Email:  middleware.EmailFromContext(r.Context()),
	})
	if err != nil {
		if !errors.Is(err, payments.ErrNotConfigured) && !errors.Is(err, domain.ErrCheckoutFailed) {
			err = errors.Join(domain.ErrCheckoutFailed, err)
		}
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}
