package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gav/internal/blobstore"
	"gav/internal/content"
	"gav/internal/store"
)

const (
	allowRemoteEnvKey      = "GAV_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 30 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	uploadConcurrencyLimit = 4
)

// Options configures a Server beyond its required collaborators.
type Options struct {
	DBPath             string
	AdminTokenHash     string
	MultipartMaxMemory int64
	AuditEnabled       bool
	AuditBuffer        int
}

// Server wraps HTTP handlers for the gav API.
type Server struct {
	addr               string
	store              store.Interface
	dbPath             string
	assets             *AssetService
	scores             *ScoreService
	auditor            *Auditor
	metrics            *Metrics
	logger             *slog.Logger
	adminTokenHash     string
	multipartMaxMemory int64
	policy             content.Policy
	uploadLimiter      chan struct{}
	httpServer         *http.Server
}

// New creates a new server instance. A nil blob store disables the
// external storage tier; external-band uploads are then rejected.
func New(addr string, st store.Interface, blobs blobstore.BlobStore, policy content.Policy, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = 8 << 20
	}

	metrics := NewMetrics()

	var auditor *Auditor
	if opts.AuditEnabled {
		auditor = NewAuditor(st, logger.With("component", "auditor"), opts.AuditBuffer, metrics)
	}

	return &Server{
		addr:               addr,
		store:              st,
		dbPath:             opts.DBPath,
		assets:             NewAssetService(st, blobs, policy, metrics),
		scores:             NewScoreService(st),
		auditor:            auditor,
		metrics:            metrics,
		logger:             logger,
		adminTokenHash:     strings.TrimSpace(opts.AdminTokenHash),
		multipartMaxMemory: opts.MultipartMaxMemory,
		policy:             policy,
		uploadLimiter:      make(chan struct{}, uploadConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server and flushes the audit side channel.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.auditor != nil {
		s.auditor.Close()
	}
	return err
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
