package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"lumina/internal/domain"
	"lumina/pkg/zip"
)

// Export downloads the processed image as Lumina-<millis>.<format>. Clients
// asking for JSON get the URL and filename instead of the bytes.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	exp, err := s.Export(r.URL.Query().Get("format"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		a.json(w, http.StatusOK, exp)
		return
	}

	body, contentType, err := a.fetch(r.Context(), exp.URL)
	if err != nil {
		a.logger(r).Warn().Err(err).Str("url", exp.URL).Msg("export fetch failed")
		a.error(w, http.StatusBadGateway, "export_failed", "failed to download processed image")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = mime.TypeByExtension("." + exp.Format)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exp.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// HistoryZip streams the results of the session's recent jobs as one archive.
func (a *App) HistoryZip(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	history := s.History()
	entries := make([]zip.Entry, 0, len(history))
	for i, job := range history {
		if job.ResultURL == "" {
			continue
		}
		resultURL := job.ResultURL
		entries = append(entries, zip.Entry{
			Filename: fmt.Sprintf("%02d-%s%s", i+1, job.EffectID, extensionOf(resultURL)),
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				body, _, err := a.fetch(ctx, resultURL)
				return body, err
			},
		})
	}
	if len(entries) == 0 {
		a.fail(w, r, domain.ErrNothingToExport)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=lumina-%s.zip", s.ID()))
	w.WriteHeader(http.StatusOK)
	if err := zip.Write(r.Context(), w, entries); err != nil {
		// Headers are gone; the client sees a truncated archive.
		a.logger(r).Warn().Err(err).Str("session_id", s.ID()).Msg("history archive aborted")
	}
}

func (a *App) fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.httpClient().Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".png"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ".png"
	}
}
