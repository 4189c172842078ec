package main

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"filescope/config"
)

func TestDumpArgs(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db.local",
		DBPort:     5433,
		DBUser:     "registry",
		DBPassword: "geheim",
		DBName:     "filescope",
	}

	args := dumpArgs(cfg)

	require.Equal(t, []string{
		"-h", "db.local",
		"-p", "5433",
		"-U", "registry",
		"-d", "filescope",
		"-t", "datasets",
		"-t", "event_journal",
		"-w",
	}, args)
	require.NotContains(t, args, "geheim", "Password must only travel via PGPASSWORD")
}

func backupObject(key string, age time.Duration) types.Object {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Add(-age)
	return types.Object{Key: aws.String(key), LastModified: &ts}
}

func TestStaleBackups(t *testing.T) {
	contents := []types.Object{
		backupObject("registry-backup-c.sql.gz", 2*time.Hour),
		backupObject("registry-backup-a.sql.gz", 0),
		backupObject("registry-backup-d.sql.gz", 3*time.Hour),
		backupObject("registry-backup-b.sql.gz", time.Hour),
	}

	stale := staleBackups(contents, 2)
	require.Len(t, stale, 2)
	require.Equal(t, "registry-backup-c.sql.gz", *stale[0].Key)
	require.Equal(t, "registry-backup-d.sql.gz", *stale[1].Key)

	require.Nil(t, staleBackups(contents, 4), "Nothing to rotate at the limit")
	require.Nil(t, staleBackups(nil, 4))
}
