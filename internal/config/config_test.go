package config

import (
	"testing"
)

func TestLoadConfigRequiresUSDCAddress(t *testing.T) {
	t.Setenv("HEDERA_USDC_ADDRESS", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected startup to fail without a settlement token address")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HEDERA_USDC_ADDRESS", "0.0.456858")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ScheduledPayoutCron != "0 6 * * *" {
		t.Fatalf("unexpected sweep schedule default: %s", cfg.ScheduledPayoutCron)
	}
	if cfg.HolderRetryMaxAttempts != 5 {
		t.Fatalf("unexpected retry attempts default: %d", cfg.HolderRetryMaxAttempts)
	}
	if cfg.HolderRetryBaseDelay.Minutes() != 5 {
		t.Fatalf("unexpected retry base delay default: %v", cfg.HolderRetryBaseDelay)
	}
	if cfg.TokenDecimals != 6 {
		t.Fatalf("unexpected decimals default: %d", cfg.TokenDecimals)
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("HEDERA_USDC_ADDRESS", "0.0.456858")
	t.Setenv("HOLDER_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("BLOCKCHAIN_CONTRACT_ID", "0.0.4242")
	t.Setenv("HEDERA_GATEWAY_API_KEY", "gw-key-1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HolderRetryMaxAttempts != 3 {
		t.Fatalf("expected env override 3, got %d", cfg.HolderRetryMaxAttempts)
	}
	if cfg.ContractID != "0.0.4242" {
		t.Fatalf("expected contract id from env, got %s", cfg.ContractID)
	}
	if cfg.HederaAPIKey != "gw-key-1" {
		t.Fatalf("expected gateway api key from env, got %s", cfg.HederaAPIKey)
	}
}

func TestDefaultStartTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "empty means beginning of chain", raw: "", want: "0.000"},
		{name: "date only", raw: "2026-01-01", want: "1767225600.000"},
		{name: "rfc3339", raw: "2026-01-01T00:00:00Z", want: "1767225600.000"},
		{name: "garbage", raw: "last tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ListenerStartTimestamp: tt.raw}
			got, err := cfg.DefaultStartTimestamp()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
