package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"FeeRouter/internal/distributor"
	"FeeRouter/internal/model"
	"FeeRouter/internal/treasury"
)

// Config holds all application configuration.
type Config struct {
	Policy struct {
		BaselineAllocation  uint64 `yaml:"baseline_allocation"`
		MaxInvestorShareBps uint16 `yaml:"max_investor_share_bps"`
		DailyCap            uint64 `yaml:"daily_cap"`
		MinPayout           uint64 `yaml:"min_payout"`
		QuoteMint           string `yaml:"quote_mint"`
		CreatorWallet       string `yaml:"creator_wallet"`
		Authority           string `yaml:"authority"`
	} `yaml:"policy"`
	Treasury struct {
		ProgramID string `yaml:"program_id"`
		Vault     string `yaml:"vault"`
		Pool      string `yaml:"pool"`
		Position  string `yaml:"position"`
		MintA     string `yaml:"mint_a"`
		MintB     string `yaml:"mint_b"`
	} `yaml:"treasury"`
	Engine struct {
		MaxInvestorsPerPage int    `yaml:"max_investors_per_page"`
		TotalInvestors      uint16 `yaml:"total_investors"`
	} `yaml:"engine"`
	Schedule struct {
		CrankCron string `yaml:"crank_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath    string `yaml:"sqlite_path"`
		DisableEvents bool   `yaml:"disable_events"`
	} `yaml:"database"`
	Vesting struct {
		StreamsFile string `yaml:"streams_file"`
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
	} `yaml:"vesting"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Display struct {
		QuoteSymbol   string `yaml:"quote_symbol"`
		QuoteDecimals int32  `yaml:"quote_decimals"`
	} `yaml:"display"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A .env file next to the working directory is loaded first and
// never replaces variables already set.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	for env, dst := range map[string]*string{
		"TELEGRAM_BOT_TOKEN":        &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":          &cfg.Telegram.ChatID,
		"HTTPS_PROXY":               &cfg.Proxy,
		"SQLITE_PATH":               &cfg.Database.SQLitePath,
		"FEEROUTER_CRANK_CRON":      &cfg.Schedule.CrankCron,
		"FEEROUTER_HTTP_ADDR":       &cfg.HTTP.Addr,
		"FEEROUTER_STREAMS_FILE":    &cfg.Vesting.StreamsFile,
		"FEEROUTER_VESTING_URL":     &cfg.Vesting.BaseURL,
		"FEEROUTER_VESTING_API_KEY": &cfg.Vesting.APIKey,
		"FEEROUTER_LOG_LEVEL":       &cfg.Log.Level,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("FEEROUTER_MAX_INVESTORS_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxInvestorsPerPage = n
		}
	}

	// Defaults
	if cfg.Engine.MaxInvestorsPerPage == 0 {
		cfg.Engine.MaxInvestorsPerPage = distributor.DefaultMaxInvestorsPerPage
	}
	if cfg.Schedule.CrankCron == "" {
		cfg.Schedule.CrankCron = "0 */10 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/feerouter.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Display.QuoteSymbol == "" {
		cfg.Display.QuoteSymbol = "USDC"
		if cfg.Display.QuoteDecimals == 0 {
			cfg.Display.QuoteDecimals = 6
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if _, err := c.PolicyParams(); err != nil {
		return err
	}
	if _, err := c.PositionParams(); err != nil {
		return err
	}
	// A streams file can supply the baseline at init time.
	if c.Policy.BaselineAllocation == 0 && (c.Vesting.StreamsFile == "" || c.Vesting.BaseURL != "") {
		return fmt.Errorf("policy.baseline_allocation must be positive unless vesting.streams_file provides it")
	}
	if c.Policy.MaxInvestorShareBps > model.BpsDenominator {
		return fmt.Errorf("policy.max_investor_share_bps must be at most %d", model.BpsDenominator)
	}
	if c.Engine.MaxInvestorsPerPage < 0 {
		return fmt.Errorf("engine.max_investors_per_page must be positive")
	}
	if c.Vesting.StreamsFile == "" && c.Vesting.BaseURL == "" {
		return fmt.Errorf("vesting.streams_file or vesting.base_url is required")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Display.QuoteDecimals < 0 || c.Display.QuoteDecimals > 18 {
		return fmt.Errorf("display.quote_decimals must be between 0 and 18")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// PolicyParams returns the distribution parameters to configure.
func (c *Config) PolicyParams() (model.Policy, error) {
	p := model.Policy{
		BaselineAllocation:  c.Policy.BaselineAllocation,
		MaxInvestorShareBps: c.Policy.MaxInvestorShareBps,
		DailyCap:            c.Policy.DailyCap,
		MinPayout:           c.Policy.MinPayout,
	}
	var err error
	if p.QuoteMint, err = parseKey("policy.quote_mint", c.Policy.QuoteMint); err != nil {
		return model.Policy{}, err
	}
	if p.CreatorWallet, err = parseKey("policy.creator_wallet", c.Policy.CreatorWallet); err != nil {
		return model.Policy{}, err
	}
	if p.Authority, err = parseKey("policy.authority", c.Policy.Authority); err != nil {
		return model.Policy{}, err
	}
	return p, nil
}

// ProgramID returns the key all treasury addresses derive from.
func (c *Config) ProgramID() (solana.PublicKey, error) {
	return parseKey("treasury.program_id", c.Treasury.ProgramID)
}

// PositionParams returns the fee position to register at init.
func (c *Config) PositionParams() (treasury.PositionParams, error) {
	var (
		p   treasury.PositionParams
		err error
	)
	for _, f := range []struct {
		name string
		src  string
		dst  *solana.PublicKey
	}{
		{"treasury.program_id", c.Treasury.ProgramID, &p.ProgramID},
		{"treasury.vault", c.Treasury.Vault, &p.Vault},
		{"treasury.pool", c.Treasury.Pool, &p.Pool},
		{"treasury.position", c.Treasury.Position, &p.Address},
		{"treasury.mint_a", c.Treasury.MintA, &p.MintA},
		{"treasury.mint_b", c.Treasury.MintB, &p.MintB},
	} {
		if *f.dst, err = parseKey(f.name, f.src); err != nil {
			return treasury.PositionParams{}, err
		}
	}
	return p, nil
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func parseKey(name, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", name)
	}
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", name, err)
	}
	return k, nil
}
