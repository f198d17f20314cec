package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GonzoDMX/citation-index/internal/ai"
	"github.com/GonzoDMX/citation-index/internal/config"
	"github.com/GonzoDMX/citation-index/internal/logger"
	"github.com/GonzoDMX/citation-index/internal/search"
	"github.com/GonzoDMX/citation-index/internal/store"
)

// Deps are the collaborators the handlers need. Extractor may be nil when
// no Gemini key is configured; extraction then reports itself unavailable.
type Deps struct {
	Store     *store.Store
	Search    *search.Executor
	Extractor ai.Extractor
	Uploads   config.UploadConfig
	Version   string
	Log       *logger.Logger
}

// Handlers serves the HTTP API.
type Handlers struct {
	Deps
	started time.Time
}

func NewHandlers(d Deps) *Handlers {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Uploads.MaxBytes <= 0 {
		d.Uploads.MaxBytes = 32 << 20
	}
	if d.Version == "" {
		d.Version = config.CurrentDefaults.AppVersion
	}
	return &Handlers{Deps: d, started: time.Now()}
}

// NewRouter mounts every route on a chi router wrapped in the logging and
// CORS middleware.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	// --- General ---
	r.Get("/health", h.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/system/status", h.HandleStatus)

		// --- Citations ---
		r.Get("/citations", h.HandleCitationList)
		r.Post("/citations", h.HandleCitationCreate)
		r.Get("/citations/{id}", h.HandleCitationGet)
		r.Delete("/citations/{id}", h.HandleCitationDelete)

		// --- Search & extraction ---
		r.Get("/search", h.HandleSearch)
		r.Post("/extract", h.HandleExtract)

		// --- Index maintenance ---
		r.Get("/index/info", h.HandleIndexInfo)
		r.Post("/index/verify", h.HandleIndexVerify)
		r.Post("/index/rebuild", h.HandleIndexRebuild)
	})

	// --- Stored PDFs ---
	r.Get("/uploads/{filename}", h.HandleUpload)

	return r
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// cors allows the browser frontend to call the API from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
