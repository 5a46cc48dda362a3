package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lumina/internal/http/handlers"
	"lumina/internal/middleware"
)

// Options configures the router's middleware stack.
type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	DefaultLocale   string
	RateLimitPerMin int
	CountryLookup   middleware.CountryLookup
	// StaticDir, when set, is served under /static for the filesystem
	// asset backend.
	StaticDir string
	Metrics   http.Handler
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID(app.Logger),
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if app.Logger != nil {
		r.Use(middleware.Logger(*app.Logger))
	}

	// Health & docs
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Route("/api", func(r chi.Router) {
			r.Get("/upload-auth", app.UploadAuth)
			r.Get("/usage", app.Usage)
			r.Post("/usage", app.ConsumeUsage)
			r.Post("/upload", app.DirectUpload)
			r.Post("/create-checkout-session", app.CreateCheckoutSession)
		})

		r.Get("/v1/effects", app.Effects)

		r.Route("/v1/editor/sessions", func(r chi.Router) {
			r.Post("/", app.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Delete("/", app.DeleteSession)
				r.Post("/image", app.UploadImage)
				r.Delete("/image", app.ClearImage)
				r.Post("/effects/{effect_id}/toggle", app.ToggleEffect)
				r.Post("/prompt", app.SubmitPrompt)
				r.Delete("/prompt", app.CancelPrompt)
				r.Put("/compare", app.SetCompare)
				r.Post("/compare/toggle", app.ToggleCompare)
				r.Get("/export", app.Export)
				r.Get("/history.zip", app.HistoryZip)
			})
		})
	})

	return r
}
