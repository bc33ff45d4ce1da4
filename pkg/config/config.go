// Package config loads process settings from the environment and the
// per-agent roster from a YAML file. Credentials never live in the YAML
// itself; the file references environment variables which are expanded at
// load time.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultSymbol is traded when an agent entry omits a symbol and when
	// the roster file itself is unavailable.
	DefaultSymbol = "BTCUSDT"

	defaultAgentsFile = "agents.yaml"
	defaultDBPath     = "data/agent-core.db"
	defaultListenAddr = ":8090"
)

// Config holds process-wide settings.
type Config struct {
	DatabasePath    string
	ListenAddr      string
	ExchangeBaseURL string
	AgentsFile      string
	PriceTTLSeconds float64
	Agents          []AgentConfig
}

// AgentConfig is the immutable identity of one trading agent. Exactly one
// runtime task owns each instance.
type AgentConfig struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name"`
	SignerAddress string             `yaml:"signer_address"`
	APIKey        string             `yaml:"api_key"`
	APISecret     string             `yaml:"api_secret"`
	PrivateKey    string             `yaml:"private_key"`
	Symbol        string             `yaml:"symbol"`
	Strategy      string             `yaml:"strategy"`
	Params        map[string]float64 `yaml:"params"`
}

// Load reads the .env file if present, then the environment, then the agent
// roster. A missing roster file degrades to a single default agent; missing
// credentials are reported by Validate, not here.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env file")
	}

	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", defaultDBPath),
		ListenAddr:      getEnv("LISTEN_ADDR", defaultListenAddr),
		ExchangeBaseURL: getEnv("EXCHANGE_BASE_URL", ""),
		AgentsFile:      getEnv("AGENTS_FILE", defaultAgentsFile),
		PriceTTLSeconds: getEnvFloat("PRICE_CACHE_TTL_SECONDS", 30),
	}

	agents, err := loadAgents(cfg.AgentsFile)
	if err != nil {
		return nil, err
	}
	cfg.Agents = agents
	return cfg, nil
}

// loadAgents parses the roster file. Environment references inside the file
// ($VAR or ${VAR}) are expanded before parsing so that secrets stay out of
// the file on disk.
func loadAgents(path string) ([]AgentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config: %s not found, falling back to single default agent", path)
			return []AgentConfig{defaultAgent()}, nil
		}
		return nil, fmt.Errorf("read agents file %s: %w", path, err)
	}

	var roster struct {
		Agents []AgentConfig `yaml:"agents"`
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &roster); err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", path, err)
	}
	if len(roster.Agents) == 0 {
		return nil, fmt.Errorf("agents file %s declares no agents", path)
	}

	for i := range roster.Agents {
		applyDefaults(&roster.Agents[i], i)
	}
	return roster.Agents, nil
}

func defaultAgent() AgentConfig {
	a := AgentConfig{
		ID:            "agent-1",
		Name:          "default",
		SignerAddress: os.Getenv("SIGNER_ADDRESS"),
		APIKey:        os.Getenv("EXCHANGE_API_KEY"),
		APISecret:     os.Getenv("EXCHANGE_API_SECRET"),
		PrivateKey:    os.Getenv("SIGNER_PRIVATE_KEY"),
		Symbol:        getEnv("TRADING_SYMBOL", DefaultSymbol),
		Strategy:      getEnv("TRADING_STRATEGY", "mean_reversion"),
	}
	return a
}

func applyDefaults(a *AgentConfig, index int) {
	if a.ID == "" {
		a.ID = fmt.Sprintf("agent-%d", index+1)
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if a.Symbol == "" {
		a.Symbol = DefaultSymbol
	}
	if a.Strategy == "" {
		a.Strategy = "mean_reversion"
	}
}

// Validate checks that every agent carries usable credentials. Credential
// gaps are fatal at startup.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("no agents configured")
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if seen[a.ID] {
			return fmt.Errorf("agent %s: duplicate id", a.ID)
		}
		seen[a.ID] = true
		if a.APIKey == "" || a.APISecret == "" {
			return fmt.Errorf("agent %s: missing API credentials", a.ID)
		}
	}
	return nil
}

// Symbols returns the distinct symbols across all agents, for the shared
// price stream.
func (c *Config) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range c.Agents {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			out = append(out, a.Symbol)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("config: %s=%q is not a number, using %v", key, v, fallback)
	}
	return fallback
}
