package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"simple-file-share/internal/config"
	"simple-file-share/internal/storage"
)

// Server is the file-share HTTP service: one upload directory, one static
// root, one listener.
type Server struct {
	cfg     config.Config
	log     *slog.Logger
	store   *storage.Store
	metrics *Metrics
	static  *staticHandler

	handler    http.Handler
	httpServer *http.Server
}

// New wires the routes and middleware for cfg. Nothing touches the disk or
// the network until Start or Serve.
func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		store:   storage.New(cfg.UploadDir, cfg.ChunkSize),
		metrics: NewMetrics(),
		static:  newStaticHandler(cfg.StaticDir, cfg.CacheMaxAge),
	}

	// Wrap middleware: requestID -> logging -> CORS -> recovery -> router
	var handler http.Handler = s.routes()
	handler = s.recovery()(handler)
	handler = corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.IdleTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return s
}

// routes builds the route table. Paths are matched in their encoded form so
// the download handler sees the raw name segment.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().UseEncodedPath().SkipClean(true)

	r.HandleFunc("/list-files", s.handleListFiles).Methods(http.MethodGet)
	r.HandleFunc("/download/{name:.*}", s.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.MetricsPath != "" {
		r.Handle(s.cfg.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	r.Methods(http.MethodOptions).HandlerFunc(handlePreflight)
	r.Methods(http.MethodPost).HandlerFunc(handleNotFound)
	r.Methods(http.MethodGet, http.MethodHead).Handler(s.static)

	r.MethodNotAllowedHandler = http.HandlerFunc(handleUnsupported)
	r.NotFoundHandler = http.HandlerFunc(handleUnsupported)
	return r
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start creates the upload directory and serves on the configured address
// until Shutdown.
func (s *Server) Start() error {
	if err := s.store.EnsureDir(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, at most MaxConnections at a time.
// It returns nil after a clean Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	s.log.Info("listening",
		"addr", ln.Addr().String(),
		"upload_dir", s.store.Dir(),
		"static_dir", s.cfg.StaticDir,
		"max_connections", s.cfg.MaxConnections,
	)
	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}

func handleUnsupported(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Unsupported method", http.StatusNotImplemented)
}
