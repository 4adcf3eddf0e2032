package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/api"
	"github.com/linesmerrill/cfs-intake-api/api/scheduler"
	"github.com/linesmerrill/cfs-intake-api/cfs"
	"github.com/linesmerrill/cfs-intake-api/config"
	"github.com/linesmerrill/cfs-intake-api/databases"
	"github.com/linesmerrill/cfs-intake-api/invalidation"
	"github.com/linesmerrill/cfs-intake-api/models"
	"github.com/linesmerrill/cfs-intake-api/notify"
)

// App stores the router and the long-lived services, so they can be reused
type App struct {
	Router  *mux.Router
	Config  config.Config
	Service *cfs.Service
	Guard   *api.Guard
	Hub     *invalidation.Hub

	store      databases.Store
	dispatcher *notify.Dispatcher
	publisher  *invalidation.Publisher
	scheduler  *scheduler.Scheduler
	closers    []func() error
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	c := CFS{Service: a.Service, QueryTimeout: a.Config.QueryTimeout}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.Handle("/ws/invalidations", a.Guard.Middleware(a.Hub)).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", http.HandlerFunc(a.Guard.CreateToken)).Methods("POST")

	apiCreate.Handle("/cfs", a.Guard.Middleware(http.HandlerFunc(c.CreateCallHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}", a.Guard.Middleware(http.HandlerFunc(c.CallByIDHandler))).Methods("GET")
	apiCreate.Handle("/cfs/{cfs_id}/triage", a.Guard.Middleware(http.HandlerFunc(c.TriageHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/verify", a.Guard.Middleware(http.HandlerFunc(c.VerifyHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/dismiss", a.Guard.Middleware(http.HandlerFunc(c.DismissHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/duplicate", a.Guard.Middleware(http.HandlerFunc(c.DuplicateHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/incident", a.Guard.Middleware(http.HandlerFunc(c.ConvertToIncidentHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/transfer", a.Guard.Middleware(http.HandlerFunc(c.TransferHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/notes", a.Guard.Middleware(http.HandlerFunc(c.AddNoteHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/status", a.Guard.Middleware(http.HandlerFunc(c.UpdateStatusHandler))).Methods("PUT")
	apiCreate.Handle("/cfs/{cfs_id}/org-access/{organization_id}", a.Guard.Middleware(http.HandlerFunc(c.GrantOrgAccessHandler))).Methods("PUT")
	apiCreate.Handle("/cfs/{cfs_id}/org-access/{organization_id}", a.Guard.Middleware(http.HandlerFunc(c.RevokeOrgAccessHandler))).Methods("DELETE")
	apiCreate.Handle("/cfs/{cfs_id}/public-tracking", a.Guard.Middleware(http.HandlerFunc(c.EnableTrackingHandler))).Methods("PUT")
	apiCreate.Handle("/cfs/{cfs_id}/public-tracking", a.Guard.Middleware(http.HandlerFunc(c.DisableTrackingHandler))).Methods("DELETE")
	apiCreate.Handle("/cfs/{cfs_id}/attachments", a.Guard.Middleware(http.HandlerFunc(c.UploadAttachmentHandler))).Methods("POST")
	apiCreate.Handle("/cfs/{cfs_id}/attachments/{attachment_id}", a.Guard.Middleware(http.HandlerFunc(c.DeleteAttachmentHandler))).Methods("DELETE")

	return r
}

// Initialize is invoked by main to connect the store, transports and router
func (a *App) Initialize(ctx context.Context) error {
	logger := zap.L()

	store, err := newStore(ctx, &a.Config)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With("error", err).Error("failed to connect to database")
		return err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	zap.S().Infow("cfs-intake-api has connected to the database", "driver", a.Config.StoreDriver)

	blobs, err := newBlobStore(ctx, &a.Config, logger)
	if err != nil {
		zap.S().With("error", err).Error("failed to set up attachment storage")
		return err
	}

	sender, closeSender, err := newSender(&a.Config, logger)
	if err != nil {
		zap.S().With("error", err).Error("failed to set up notification transport")
		return err
	}
	a.dispatcher = notify.NewDispatcher(store, sender, logger.Named("notify"), notify.Options{
		QueueSize:       a.Config.NotifyQueueSize,
		Workers:         a.Config.NotifyWorkers,
		TrackingBaseURL: a.Config.TrackingBaseURL,
	})
	a.closers = append(a.closers, a.closeDispatcher(closeSender))

	a.Hub = invalidation.NewHub(logger.Named("hub"))
	signalers := invalidation.Fanout{a.Hub}
	var locker scheduler.Locker
	if a.Config.RedisURL != "" {
		a.publisher, err = invalidation.NewPublisher(ctx, a.Config.RedisURL, a.Config.RedisInvalidationChannel,
			uuid.NewString(), logger.Named("invalidation"))
		if err != nil {
			zap.S().With("error", err).Error("failed to connect to redis")
			return err
		}
		signalers = append(signalers, a.publisher)
		a.closers = append(a.closers, a.publisher.Close)
		// websocket subscribers on this replica hear about changes made on the others
		if err := a.publisher.Relay(a.Hub); err != nil {
			return err
		}

		redisLocker, closeLocker, err := newRedisLocker(a.Config.RedisURL)
		if err != nil {
			return err
		}
		locker = redisLocker
		a.closers = append(a.closers, closeLocker)
	}

	a.Service = cfs.NewService(store, blobs, a.dispatcher, signalers, logger.Named("cfs"))
	a.Guard = api.NewGuard(a.Config.ServiceAccounts, api.NewTokenIssuer(a.Config.JWTSecret, a.Config.JWTTTL))

	retention := time.Duration(a.Config.TrackingRetentionDays) * 24 * time.Hour
	a.scheduler = scheduler.NewScheduler(a.Service, locker, retention)
	if err := a.scheduler.Start(a.Config.TrackingSweepSchedule); err != nil {
		zap.S().With("error", err).Error("failed to start scheduler")
		return err
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// closeDispatcher drains the notification queue and only then closes its transport
func (a *App) closeDispatcher(closeSender func() error) func() error {
	return func() error {
		if a.dispatcher != nil {
			a.dispatcher.Close()
		}
		if closeSender == nil {
			return nil
		}
		return closeSender()
	}
}

// Close stops background work and releases connections in reverse order of creation
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.S().Warnw("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
