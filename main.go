package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"filescope/config"
	"filescope/events"
	"filescope/models"
	"filescope/registry"
	"filescope/storage"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	uploadsCounter   prometheus.Counter
	viewsCounter     prometheus.Counter
	downloadsCounter prometheus.Counter
	citationsCounter prometheus.Counter
)

func init() {
	uploadsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "datasets_registered_total",
		Help: "Total number of datasets registered.",
	})
	viewsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataset_views_total",
		Help: "Total number of recorded dataset views.",
	})
	downloadsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataset_downloads_total",
		Help: "Total number of recorded dataset downloads.",
	})
	citationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dataset_citations_total",
		Help: "Total number of recorded dataset citations.",
	})
	prometheus.MustRegister(uploadsCounter, viewsCounter, downloadsCounter, citationsCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// actorAuthMiddleware liest die bereits authentifizierte Actor-Identität
// aus dem Header. Die Registry selbst authentifiziert nie, sie autorisiert
// nur gegen das gespeicherte Owner-Feld.
func actorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Actor-ID")
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing X-Actor-ID header"})
			return
		}
		c.Set("actor", actor)
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to registry database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Dataset{}, &models.EventRecord{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Event Sinks
	sinks := []events.Sink{
		storage.NewStore(db, logging),
		events.NewLogSink(logging),
	}
	if cfg.EventWebhookURL != "" {
		sinks = append(sinks, events.NewWebhookSink(cfg.EventWebhookURL, logging))
		logging.Info("Webhook-Sink aktiviert", zap.String("url", cfg.EventWebhookURL))
	}
	dispatcher := events.NewDispatcher(logging, cfg.EventQueueSize, sinks...)
	defer dispatcher.Close()

	// Setup Registry: Zustand aus der Datenbank wiederherstellen
	reg := registry.New(logging, dispatcher)
	persisted, err := storage.LoadAll(db)
	if err != nil {
		logging.Fatal("Failed to load persisted datasets", zap.Error(err))
	}
	if err := reg.Restore(persisted); err != nil {
		logging.Fatal("Failed to restore registry state", zap.Error(err))
	}

	// Setup Router
	router := newRouter(cfg, reg, logging)

	// Setup Cron: periodischer Snapshot-Export nach S3
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.SnapshotCronSchedule, func() {
		logging.Info("Running scheduled snapshot export...")
		link, err := exportSnapshot(context.Background(), reg, s3Client, cfg)
		if err != nil {
			logging.Error("Snapshot export failed", zap.Error(err))
		} else {
			logging.Info("Snapshot export completed", zap.String("link", link))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// newRouter baut den Gin-Router mit allen Registry-Routen auf.
func newRouter(cfg *config.Config, reg *registry.Registry, logging *zap.Logger) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupDatasetRoutes(router, reg, logging)
	setupCounterRoutes(router, reg)
	setupListingRoutes(router, reg)

	return router
}

// registryErrStatus bildet die Fehler-Taxonomie der Registry auf HTTP-Status ab.
func registryErrStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicateRef):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidRef):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNotOwner), errors.Is(err, registry.ErrAccessDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func parseDatasetID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataset id"})
		return 0, false
	}
	return id, true
}

func setupDatasetRoutes(router *gin.Engine, reg *registry.Registry, log *zap.Logger) {
	rg := router.Group("/datasets")
	rg.Use(actorAuthMiddleware())

	// POST - Neues Dataset registrieren
	rg.POST("/", func(c *gin.Context) {
		var req struct {
			DatasetRef  string `json:"dataset_ref"`
			AnalysisRef string `json:"analysis_ref"`
			IsPublic    bool   `json:"is_public"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		actor := c.GetString("actor")
		id, err := reg.Upload(actor, req.DatasetRef, req.AnalysisRef, req.IsPublic)
		if err != nil {
			log.Warn("Dataset upload rejected",
				zap.String("actor", actor),
				zap.String("dataset_ref", req.DatasetRef),
				zap.Error(err))
			c.JSON(registryErrStatus(err), gin.H{"error": err.Error()})
			return
		}

		uploadsCounter.Inc()
		log.Info("Dataset registered",
			zap.Uint64("id", id),
			zap.String("actor", actor),
			zap.Bool("is_public", req.IsPublic))
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	// GET - Einzelnes Dataset lesen (Sichtbarkeits-Check in der Registry)
	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseDatasetID(c)
		if !ok {
			return
		}
		rec, err := reg.Get(c.GetString("actor"), id)
		if err != nil {
			c.JSON(registryErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	// PUT - Analysis-Ref aktualisieren (nur Owner)
	rg.PUT("/:id/analysis", func(c *gin.Context) {
		id, ok := parseDatasetID(c)
		if !ok {
			return
		}
		var req struct {
			AnalysisRef string `json:"analysis_ref"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := reg.UpdateAnalysis(c.GetString("actor"), id, req.AnalysisRef); err != nil {
			c.JSON(registryErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "analysis updated"})
	})

	// PUT - Sichtbarkeit umschalten (nur Owner)
	rg.PUT("/:id/visibility", func(c *gin.Context) {
		id, ok := parseDatasetID(c)
		if !ok {
			return
		}
		var req struct {
			IsPublic *bool `json:"is_public" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'is_public' field is required."})
			return
		}
		if err := reg.SetVisibility(c.GetString("actor"), id, *req.IsPublic); err != nil {
			c.JSON(registryErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "visibility updated"})
	})
}

// setupCounterRoutes konfiguriert die Zähler-Endpunkte. Auf privaten
// Datasets sind die Aufrufe für Fremde bewusst stille No-ops; die Antwort
// ist trotzdem 204, nur eine unbekannte ID ist ein Fehler.
func setupCounterRoutes(router *gin.Engine, reg *registry.Registry) {
	rg := router.Group("/datasets")
	rg.Use(actorAuthMiddleware())

	counters := []struct {
		path string
		op   func(actor string, id uint64) (bool, error)
		prom prometheus.Counter
	}{
		{"views", reg.RecordView, viewsCounter},
		{"downloads", reg.RecordDownload, downloadsCounter},
		{"citations", reg.RecordCitation, citationsCounter},
	}

	for _, counter := range counters {
		counter := counter
		rg.POST("/:id/"+counter.path, func(c *gin.Context) {
			id, ok := parseDatasetID(c)
			if !ok {
				return
			}
			counted, err := counter.op(c.GetString("actor"), id)
			if err != nil {
				c.JSON(registryErrStatus(err), gin.H{"error": err.Error()})
				return
			}
			// Prometheus spiegelt nur tatsächlich gezählte Aufrufe wider,
			// nicht die stillen No-ops auf privaten Datasets.
			if counted {
				counter.prom.Inc()
			}
			c.Status(http.StatusNoContent)
		})
	}
}

func setupListingRoutes(router *gin.Engine, reg *registry.Registry) {
	rg := router.Group("/datasets")
	rg.Use(actorAuthMiddleware())

	// GET - Alle öffentlichen Datasets, aufsteigend nach ID
	rg.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.ListPublic())
	})

	// GET - Eigene Datasets in Erstellungs-Reihenfolge, private eingeschlossen
	rg.GET("/owned", func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.ListOwnedBy(c.GetString("actor")))
	})

	// GET - Gesamtzahl aller jemals registrierten Datasets
	rg.GET("/count", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": reg.Count()})
	})
}

// exportSnapshot serialisiert den kompletten Registry-Zustand und lädt
// ihn als JSON-Datei ins S3 hoch.
func exportSnapshot(ctx context.Context, reg *registry.Registry, s3Client *awss3.Client, cfg *config.Config) (string, error) {
	data, err := json.Marshal(reg.Snapshot())
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("registry-snapshot-%s.json", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	return storage.UploadSnapshot(ctx, s3Client, cfg, key, data)
}
