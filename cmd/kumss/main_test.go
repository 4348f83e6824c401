package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kumss/console/internal/config"
	"github.com/kumss/console/internal/database"
	"github.com/kumss/console/internal/database/repository"
)

func TestCacheReportDisabled(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cacheReport(context.Background(), config.CacheConfig{}, &out))
	require.Equal(t, "page cache disabled\n", out.String())
}

func TestCacheReportSurfacesOpenError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	var out bytes.Buffer
	err := cacheReport(context.Background(), config.CacheConfig{Enabled: true, Path: filepath.Join(file, "cache.db")}, &out)
	require.ErrorContains(t, err, "open page cache")
	require.Empty(t, out.String())
}

func TestCacheReportCountsPerResource(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	cfg := config.CacheConfig{Enabled: true, Path: path}

	var out bytes.Buffer
	require.NoError(t, cacheReport(ctx, cfg, &out))
	require.Equal(t, "page cache is empty\n", out.String())

	db, err := database.OpenMigrated(path)
	require.NoError(t, err)
	repo := repository.NewPageCacheRepo(db)
	for _, key := range []string{"events?page=1", "events?page=2", "batches?page=1"} {
		resource, _, _ := strings.Cut(key, "?")
		require.NoError(t, repo.Put(ctx, repository.CachedPage{Key: key, Resource: resource, Results: []byte(`[]`)}))
	}
	require.NoError(t, db.Close())

	out.Reset()
	require.NoError(t, cacheReport(ctx, cfg, &out))
	require.Contains(t, out.String(), "batches")
	require.Contains(t, out.String(), "events")
	require.Less(t, bytes.Index(out.Bytes(), []byte("batches")), bytes.Index(out.Bytes(), []byte("events")))
}
