package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"TAX_RATE", "FEE_RATE", "TOP_N", "PROVIDER_TIMEOUT_MS", "MYSQL_DSN", "SESSION_TTL_MINUTES", "REQUEST_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.TaxRate != 0.0875 || c.FeeRate != 0.025 {
		t.Fatalf("rates = %v/%v", c.TaxRate, c.FeeRate)
	}
	if c.TopN != 3 || c.ProviderTimeout != 8*time.Second || c.SessionTTL != 2*time.Hour || c.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.MySQLDSN != "" {
		t.Fatalf("expected empty DSN, got %q", c.MySQLDSN)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TAX_RATE", "0.1")
	t.Setenv("FEE_RATE", "bogus")
	t.Setenv("TOP_N", "5")
	t.Setenv("PROVIDER_TIMEOUT_MS", "250")
	c := Load()
	if c.TaxRate != 0.1 {
		t.Fatalf("tax = %v", c.TaxRate)
	}
	if c.FeeRate != 0.025 {
		t.Fatalf("invalid fee rate should fall back, got %v", c.FeeRate)
	}
	if c.TopN != 5 || c.ProviderTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected overrides: %+v", c)
	}
}
