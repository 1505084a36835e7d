package internal

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"warehouse-inventory-api/internal/auth"
	"warehouse-inventory-api/internal/config"
	"warehouse-inventory-api/internal/handlers"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/internal/labels"
	"warehouse-inventory-api/internal/models"
	"warehouse-inventory-api/pkg/importer"
)

//go:embed openapi
var openapiFS embed.FS

// UserStore keeps operator accounts
type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	ByUsername(ctx context.Context, username string) (models.User, error)
	ByID(ctx context.Context, id int64) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the backends a Server is wired to. Photos, PDF, Mapping and
// Pinger may be nil.
type Deps struct {
	Store    inventory.RecordStore
	Users    UserStore
	Sessions inventory.AuditSessionStore
	Photos   inventory.PhotoSaver
	PDF      labels.PDFRenderer
	Mapping  *importer.Mapping
	Pinger   Pinger
	Logger   *slog.Logger
}

type Server struct {
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Logger     *slog.Logger

	Items    *inventory.Items
	Picks    *inventory.Picks
	Auditor  *inventory.Auditor
	Labels   *labels.Generator
	Users    UserStore
	Sessions inventory.AuditSessionStore
	Imports  *handlers.ImportsHandler

	cfg    *config.Config
	pinger Pinger

	// auditMu serialises load-modify-save of audit sessions
	auditMu sync.Mutex
}

// NewServer wires the inventory services to the HTTP router
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Users == nil || deps.Sessions == nil {
		return nil, errors.New("server needs an item store, a user store and an audit session store")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	imports := handlers.NewImportsHandler(deps.Store, deps.Mapping)
	imports.Recorder = metrics

	s := &Server{
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
		Logger:     logger,
		Items:      inventory.NewItems(deps.Store, deps.Photos, logger),
		Picks:      inventory.NewPicks(deps.Store, metrics, logger),
		Auditor:    inventory.NewAuditor(deps.Store, metrics),
		Labels:     labels.NewGenerator(deps.PDF, logger),
		Users:      deps.Users,
		Sessions:   deps.Sessions,
		Imports:    imports,
		cfg:        cfg,
		pinger:     deps.Pinger,
	}

	s.Router.Use(s.middlewareStack()...)
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	s.Router.With(loginLimiter()).Post("/auth/login", s.loginUser)
	s.mountDocs(s.Router)

	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})

	return s, nil
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			handlers.WriteError(w, r, err)
			return
		}
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// mountDocs serves the OpenAPI document and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	if !s.cfg.EnableSwagger {
		return
	}

	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Warehouse Inventory API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`))
	})
}

// can gates a route on the capability its operation declares
func can(op inventory.Operation) func(http.Handler) http.Handler {
	return auth.MustCapability(inventory.Requires(op))
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Catalog
	r.With(can(inventory.OpView)).Get("/items", s.listItems)
	r.With(can(inventory.OpView)).Get("/items/sold", s.listSold)
	r.With(can(inventory.OpView)).Get("/items/{id}", s.getItem)
	r.With(can(inventory.OpView)).Get("/scan/{code}", s.lookupItem)
	r.With(can(inventory.OpReceive)).Post("/items", s.createItem)
	r.With(can(inventory.OpEdit)).Patch("/items/{id}", s.updateItem)
	r.With(can(inventory.OpAdjustQuantity)).Put("/items/{id}/quantity", s.adjustQuantity)
	r.With(can(inventory.OpDelete)).Delete("/items/{id}", s.deleteItem)

	// Pick workflow
	r.With(can(inventory.OpView)).Get("/picks", s.listPending)
	r.With(can(inventory.OpRequestPick)).Post("/items/{id}/pick", s.requestPick)
	r.With(can(inventory.OpFulfill)).Post("/items/{id}/fulfill", s.fulfillPick)
	r.With(can(inventory.OpCancel)).Post("/items/{id}/cancel", s.cancelPick)
	r.With(can(inventory.OpAdminClear)).Post("/items/{id}/clear", s.clearPick)
	r.With(can(inventory.OpReturnToStock)).Post("/items/{id}/return", s.returnToStock)

	// Audit
	r.Route("/audit", func(r chi.Router) {
		r.Use(can(inventory.OpAudit))
		r.Post("/start", s.startAudit)
		r.Post("/scan", s.scanAudit)
		r.Get("/status", s.auditStatus)
		r.Get("/report", s.auditReport)
		r.Post("/end", s.endAudit)
	})

	// Bulk
	r.With(can(inventory.OpImport)).Post("/imports/items", s.Imports.Upload)
	r.With(can(inventory.OpExport)).Get("/exports/items", s.exportItems)
	r.With(can(inventory.OpPrintLabels)).Post("/labels", s.printLabels)

	// Users
	r.With(auth.MustCapability(models.CapUsersManage)).Post("/users", s.createUser)
	r.With(auth.MustCapability(models.CapUsersManage)).Get("/users", s.listUsers)
	r.Get("/auth/profile", s.getUserProfile)
}
