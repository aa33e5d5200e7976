package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHAIN_RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("CHAIN_ID", "1337")
	t.Setenv("CUSTOMER_ADDRESS", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	t.Setenv("CUSTOMER_PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	t.Setenv("PROVIDER_ADDRESS", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	t.Setenv("DELIVERER_ADDRESS", "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	t.Setenv("ADMIN_ADDRESS", "0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	t.Setenv("ADMIN_PRIVATE_KEY", "7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setValidEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
		assert.Equal(t, "smartdelivery.db", cfg.DBPath)
		assert.Equal(t, 2.0, cfg.MinTemp)
		assert.Equal(t, 8.0, cfg.MaxTemp)
		assert.Equal(t, 60.0, cfg.MinHumidity)
		assert.Equal(t, 80.0, cfg.MaxHumidity)
	})

	t.Run("Overrides", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("PORT", "8080")
		t.Setenv("SWEEP_INTERVAL_MINUTES", "1")
		t.Setenv("MIN_TEMP", "-5")
		t.Setenv("MAX_TEMP", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, time.Minute, cfg.SweepInterval)
		assert.Equal(t, -5.0, cfg.MinTemp)
		assert.Equal(t, 0.0, cfg.MaxTemp)
	})

	t.Run("MissingContractAddress", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("CONTRACT_ADDRESS", "")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("MalformedAddress", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("ADMIN_ADDRESS", "not-an-address")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("MalformedPort", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("PORT", "eighty")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("InvertedSimulationBounds", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("MIN_TEMP", "10")
		t.Setenv("MAX_TEMP", "2")

		_, err := Load()
		assert.Error(t, err)
	})
}
