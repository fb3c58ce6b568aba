package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, "8081", cfg.HTTPPort)
		assert.Equal(t, "orders.exchange", cfg.OrdersExchange)
		assert.Equal(t, "orders.payment.completed", cfg.PaymentCompletedQueue)
		assert.Equal(t, "file://migrations", cfg.MigrationsPath)
	})

	t.Run("should read overrides from the environment", func(t *testing.T) {
		t.Setenv("ORDERS_HTTP_PORT", "9090")
		t.Setenv("ORDERS_DB_NAME", "orders_test")

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.HTTPPort)
		assert.Contains(t, cfg.DBConnectionString(), "dbname=orders_test")
	})
}
