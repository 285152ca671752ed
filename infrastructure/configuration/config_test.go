package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration(t *testing.T) {
	t.Run("defaults_applied", func(t *testing.T) {
		require.NotZero(t, C.App.Port, "App port should default")
		require.NotEmpty(t, C.Snapshot.Backend)
		require.NotEmpty(t, C.App.AllowedOrigins)
	})
}

func TestGetInstagramConfig_Defaults(t *testing.T) {
	saved := C.Instagram
	t.Cleanup(func() { C.Instagram = saved })
	C.Instagram = Instagram{}

	cfg := GetInstagramConfig()

	assert.Equal(t, StrategyInstagram, cfg.Strategy)
	assert.Equal(t, "Instagram", cfg.Provider)
	assert.Equal(t, time.Hour, cfg.FeedTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.RenewalWindow)
	assert.Equal(t, 6, cfg.DefaultLimit)
	assert.Equal(t, 50, cfg.MaxLimit)
	assert.True(t, cfg.AutoRenew)
	assert.Contains(t, cfg.RedirectURL, "/auth/instagram/callback")
}

func TestGetInstagramConfig_EnvOverrides(t *testing.T) {
	saved := C.Instagram
	t.Cleanup(func() { C.Instagram = saved })
	off := false
	C.Instagram = Instagram{
		ClientID:       "YOUR_CLIENT_ID",
		ClientSecret:   "from-json",
		FeedTTLSeconds: 120,
		AutoRenew:      &off,
	}
	t.Setenv("CLIENT_ID", "env-client")
	t.Setenv("INSTAGRAM_CLIENT_ID", "ignored-alias")
	t.Setenv("ACCESS_TOKEN", "IGQVJ-token")
	t.Setenv("INSTAGRAM_REQUEST_TIMEOUT", "3s")
	t.Setenv("INSTAGRAM_STRATEGY", "Facebook")

	cfg := GetInstagramConfig()

	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "from-json", cfg.ClientSecret)
	assert.Equal(t, "IGQVJ-token", cfg.AccessToken)
	assert.Equal(t, 2*time.Minute, cfg.FeedTTL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StrategyFacebook, cfg.Strategy)
	assert.False(t, cfg.AutoRenew)
}

func TestGetInstagramConfig_PlaceholderIgnored(t *testing.T) {
	saved := C.Instagram
	t.Cleanup(func() { C.Instagram = saved })
	C.Instagram = Instagram{ClientID: "YOUR_INSTAGRAM_APP_ID", Strategy: "myspace"}

	cfg := GetInstagramConfig()

	assert.Empty(t, cfg.ClientID)
	assert.Equal(t, StrategyInstagram, cfg.Strategy)
	assert.False(t, cfg.Configured())
}

func TestLoadEnvFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.env")
	content := "# comment\n\nexport IGFEED_TEST_A=alpha\nIGFEED_TEST_B=\"quoted # kept\"\nIGFEED_TEST_C=plain # trailing\nIGFEED_TEST_EXISTING=file\nnot-a-pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("IGFEED_TEST_EXISTING", "env")
	for _, k := range []string{"IGFEED_TEST_A", "IGFEED_TEST_B", "IGFEED_TEST_C"} {
		k := k
		t.Cleanup(func() { _ = os.Unsetenv(k) })
	}

	loaded := LoadEnvFromFile(path, filepath.Join(dir, "missing.env"))

	assert.Equal(t, []string{path}, loaded)
	assert.Equal(t, "alpha", os.Getenv("IGFEED_TEST_A"))
	assert.Equal(t, "quoted # kept", os.Getenv("IGFEED_TEST_B"))
	assert.Equal(t, "plain", os.Getenv("IGFEED_TEST_C"))
	assert.Equal(t, "env", os.Getenv("IGFEED_TEST_EXISTING"))
}

func TestInitSnapshot_Backends(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"mongo", SnapshotMongo},
		{"redis", SnapshotRedis},
		{"cassandra", SnapshotNone},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("SNAPSHOT_BACKEND", tt.env)
			cfg := Config{}
			initSnapshot(&cfg)
			assert.Equal(t, tt.want, cfg.Snapshot.Backend)
		})
	}
}

func TestInitDatabase_MongoDefaults(t *testing.T) {
	t.Setenv("MONGO_HOST", "mongo.internal")
	cfg := Config{}
	initDatabase(&cfg)

	assert.Equal(t, "mongo.internal", cfg.Database.Mongo.Host)
	assert.Equal(t, "27017", cfg.Database.Mongo.Port)
	assert.Equal(t, "instagram_feed", cfg.Database.Mongo.Name)
}
