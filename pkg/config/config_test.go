package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movil/pkg/config"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Worker.PoolSize)
	assert.Equal(t, 15*time.Second, cfg.Reconciliation.LoadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Reconciliation.FinalizeTimeout)
	assert.Empty(t, cfg.Reconciliation.Mobiles)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 10*time.Second, cfg.DB.ConnectTimeout())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "MEMORY")
	v.Set("RECON_MOBILES", "MOVIL-1, MOVIL-2,,MOVIL-3 ")
	v.Set("RECON_LOAD_TIMEOUT", "5")
	v.Set("RECON_FINALIZE_TIMEOUT", "2m")
	v.Set("WORKER_POOL_SIZE", "8")
	v.Set("HTTP_PORT", "9090")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, []string{"MOVIL-1", "MOVIL-2", "MOVIL-3"}, cfg.Reconciliation.Mobiles)
	assert.Equal(t, 5*time.Second, cfg.Reconciliation.LoadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Reconciliation.FinalizeTimeout)
	assert.Equal(t, 8, cfg.Worker.PoolSize)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestFromViper_InvalidDriver(t *testing.T) {
	v := viper.New()
	v.Set("STORE_DRIVER", "sqlite")

	_, err := config.FromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/inv?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
