package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"filescope/config"
	"filescope/storage"
)

// backupPrefix kennzeichnet die Dump-Objekte im Snapshot-Bucket, damit
// die Rotation keine JSON-Snapshots des Registry-Zustands mitlöscht.
const backupPrefix = "registry-backup-"

func main() {
	log.Println("Starte Backup der Registry-Datenbank...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	// 1. Dump der Registry-Tabellen erstellen
	dumpData, err := createDump(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des DB-Dumps: %v", err)
	}

	// 2. S3-Client erstellen
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	// 3. Backup nach S3 hochladen
	fileName := fmt.Sprintf("%s%s.sql.gz", backupPrefix, time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := storage.UploadSnapshot(context.Background(), s3Client, cfg, fileName, dumpData)
	if err != nil {
		log.Fatalf("Fehler beim Hochladen nach S3: %v", err)
	}
	log.Printf("Backup erfolgreich hochgeladen: %s", link)

	// 4. Alte Backups rotieren
	err = rotateBackups(s3Client, cfg)
	if err != nil {
		log.Fatalf("Fehler bei der Rotation alter Backups: %v", err)
	}

	log.Println("Backup-Prozess erfolgreich abgeschlossen.")
}

// dumpArgs baut die pg_dump-Argumente. Gesichert werden nur die
// Registry-Tabellen, das Passwort läuft über PGPASSWORD.
func dumpArgs(cfg *config.Config) []string {
	return []string{
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-t", "datasets",
		"-t", "event_journal",
		"-w",
	}
}

func createDump(cfg *config.Config) ([]byte, error) {
	cmd := exec.Command("pg_dump", dumpArgs(cfg)...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.DBPassword))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, stdout); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// staleBackups liefert die Objekte, die über das Aufbewahrungslimit
// hinausgehen, geordnet nach Alter (neueste zuerst behalten).
func staleBackups(contents []types.Object, keep int) []types.Object {
	if len(contents) <= keep {
		return nil
	}
	sorted := make([]types.Object, len(contents))
	copy(sorted, contents)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastModified.After(*sorted[j].LastModified)
	})
	return sorted[keep:]
}

func rotateBackups(client *s3.Client, cfg *config.Config) error {
	output, err := client.ListObjectsV2(context.Background(), &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.SnapshotS3Bucket),
		Prefix: aws.String(backupPrefix),
	})
	if err != nil {
		return err
	}

	stale := staleBackups(output.Contents, cfg.BackupKeepCount)
	if len(stale) == 0 {
		log.Printf("Höchstens %d Backups vorhanden, keine Rotation nötig.", cfg.BackupKeepCount)
		return nil
	}

	for _, obj := range stale {
		log.Printf("Lösche altes Backup: %s", *obj.Key)
		_, err := client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.SnapshotS3Bucket),
			Key:    obj.Key,
		})
		if err != nil {
			log.Printf("Fehler beim Löschen von %s: %v", *obj.Key, err)
		}
	}

	return nil
}
