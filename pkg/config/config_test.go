package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRoster(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestLoadAgentsExpandsEnv(t *testing.T) {
	t.Setenv("TEST_AGENT_KEY", "key-from-env")
	t.Setenv("TEST_AGENT_SECRET", "secret-from-env")
	path := writeRoster(t, `
agents:
  - id: alpha
    api_key: ${TEST_AGENT_KEY}
    api_secret: ${TEST_AGENT_SECRET}
    symbol: ETHUSDT
    strategy: scored
    params:
      rsi_oversold: 25
`)

	agents, err := loadAgents(path)
	if err != nil {
		t.Fatalf("loadAgents: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("got %d agents, expected 1", len(agents))
	}
	a := agents[0]
	if a.APIKey != "key-from-env" || a.APISecret != "secret-from-env" {
		t.Fatalf("env expansion failed: %+v", a)
	}
	if a.Symbol != "ETHUSDT" || a.Strategy != "scored" {
		t.Fatalf("fields not parsed: %+v", a)
	}
	if a.Params["rsi_oversold"] != 25 {
		t.Fatalf("params not parsed: %v", a.Params)
	}
}

func TestLoadAgentsDefaults(t *testing.T) {
	path := writeRoster(t, `
agents:
  - api_key: k
    api_secret: s
`)
	agents, err := loadAgents(path)
	if err != nil {
		t.Fatalf("loadAgents: %v", err)
	}
	a := agents[0]
	if a.ID != "agent-1" || a.Name != "agent-1" {
		t.Fatalf("identity defaults wrong: %+v", a)
	}
	if a.Symbol != DefaultSymbol {
		t.Fatalf("Symbol=%q, expected default %q", a.Symbol, DefaultSymbol)
	}
	if a.Strategy != "mean_reversion" {
		t.Fatalf("Strategy=%q, expected mean_reversion", a.Strategy)
	}
}

func TestLoadAgentsMissingFileFallsBack(t *testing.T) {
	t.Setenv("EXCHANGE_API_KEY", "k")
	t.Setenv("EXCHANGE_API_SECRET", "s")
	t.Setenv("TRADING_SYMBOL", "")

	agents, err := loadAgents(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if len(agents) != 1 || agents[0].Symbol != DefaultSymbol {
		t.Fatalf("expected single default agent on %s, got %+v", DefaultSymbol, agents)
	}
}

func TestLoadAgentsEmptyRoster(t *testing.T) {
	path := writeRoster(t, "agents: []\n")
	if _, err := loadAgents(path); err == nil {
		t.Fatal("empty roster must error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		agents  []AgentConfig
		wantErr bool
	}{
		{
			name: "complete credentials pass",
			agents: []AgentConfig{
				{ID: "a", APIKey: "k", APISecret: "s"},
			},
		},
		{
			name: "missing secret fails",
			agents: []AgentConfig{
				{ID: "a", APIKey: "k"},
			},
			wantErr: true,
		},
		{
			name: "duplicate ids fail",
			agents: []AgentConfig{
				{ID: "a", APIKey: "k", APISecret: "s"},
				{ID: "a", APIKey: "k", APISecret: "s"},
			},
			wantErr: true,
		},
		{
			name:    "no agents fail",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Agents: tt.agents}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestSymbolsDeduplicates(t *testing.T) {
	cfg := &Config{Agents: []AgentConfig{
		{ID: "a", Symbol: "BTCUSDT"},
		{ID: "b", Symbol: "ETHUSDT"},
		{ID: "c", Symbol: "BTCUSDT"},
	}}
	got := cfg.Symbols()
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Fatalf("Symbols=%v", got)
	}
}
