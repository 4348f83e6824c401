package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "https://erp.example.edu/api/v1/"
timeout = "3s"

[ui]
page_size = 50
`), 0o644))
	t.Setenv("HOME", dir)
	t.Setenv("KUMSS_CONFIG", path)
	t.Setenv("KUMSS_SESSION_COLLEGE_ID", "7")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "https://erp.example.edu/api/v1", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, 50, cfg.UI.PageSize)
	require.Equal(t, "7", cfg.Session.CollegeID)
	require.True(t, cfg.Cache.Enabled)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("KUMSS_CONFIG", "")

	flags := pflag.NewFlagSet("kumss", pflag.ContinueOnError)
	flags.String("base-url", "", "")
	flags.Bool("no-cache", false, "")
	require.NoError(t, flags.Parse([]string{"--base-url", "http://127.0.0.1:9000/api/v1", "--no-cache"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9000/api/v1", cfg.API.BaseURL)
	require.False(t, cfg.Cache.Enabled)
}

func TestLoadRejectsUnknownPageSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\npage_size = 37\n"), 0o644))
	t.Setenv("HOME", dir)
	t.Setenv("KUMSS_CONFIG", path)

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.UI.PageSize)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kumss", "config.toml")
	t.Setenv("HOME", dir)
	t.Setenv("KUMSS_CONFIG", path)

	cfg := Config{
		API:   APIConfig{BaseURL: "https://school.example/api/v1", Token: "secret", Timeout: 5 * time.Second, Burst: 2},
		UI:    UIConfig{PageSize: 10},
		Cache: CacheConfig{Enabled: true, TTL: time.Minute},
	}
	require.NoError(t, Save(cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret")

	again, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "https://school.example/api/v1", again.API.BaseURL)
	require.Equal(t, 5*time.Second, again.API.Timeout)
	require.Equal(t, 10, again.UI.PageSize)
	require.Empty(t, again.API.Token)
}

func TestResolveActorPrefersPinnedIDs(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    float64(42),
		"college_id": "3",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	actor, err := ResolveActor(SessionConfig{}, token)
	require.NoError(t, err)
	require.Equal(t, Actor{UserID: "42", CollegeID: "3"}, actor)

	actor, err = ResolveActor(SessionConfig{CollegeID: "9"}, token)
	require.NoError(t, err)
	require.Equal(t, "9", actor.CollegeID)
	require.Equal(t, "42", actor.Value("user_id"))
}

func TestActorFromTokenRejectsGarbage(t *testing.T) {
	_, err := ActorFromToken("not-a-token")
	require.Error(t, err)

	actor, err := ActorFromToken("")
	require.NoError(t, err)
	require.True(t, actor.IsZero())
}
