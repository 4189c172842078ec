package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Optionaler API-Key; leer bedeutet, dass die Prüfung übersprungen wird.
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Event-Zustellung
	EventQueueSize  int    `envconfig:"EVENT_QUEUE_SIZE" default:"256"`
	EventWebhookURL string `envconfig:"EVENT_WEBHOOK_URL"`

	// Zeitplan für den Snapshot-Export nach S3
	SnapshotCronSchedule string `envconfig:"SNAPSHOT_CRON_SCHEDULE" default:"0 * * * *"`

	SnapshotS3Key    string `envconfig:"SNAPSHOT_S3_KEY" required:"true"`
	SnapshotS3Secret string `envconfig:"SNAPSHOT_S3_SECRET" required:"true"`
	SnapshotS3URL    string `envconfig:"SNAPSHOT_S3_URL" required:"true"`
	SnapshotS3Region string `envconfig:"SNAPSHOT_S3_REGION" required:"true"`
	SnapshotS3Bucket string `envconfig:"SNAPSHOT_S3_BUCKET" required:"true"`

	// Anzahl der pg_dump-Backups, die bei der Rotation behalten werden.
	BackupKeepCount int `envconfig:"BACKUP_KEEP_COUNT" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
