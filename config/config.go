package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/primeflash/flasharb/types"
	"github.com/primeflash/flasharb/utils"
)

// Config holds every knob the agent reads at startup. Values are loaded
// once; nothing here is mutated after LoadConfig returns.
type Config struct {
	// Chain and network settings
	ChainID     uint64 `json:"chain_id"`
	RPCEndpoint string `json:"rpc_endpoint"`

	// Arbitrage contract and routing
	ContractAddress common.Address     `json:"contract_address"`
	BaseToken       common.Address     `json:"base_token"`
	RouterA         common.Address     `json:"router_a"`
	RouterB         common.Address     `json:"router_b"`
	Pairs           []types.PairConfig `json:"pairs"`
	LoanAmounts     []*big.Int         `json:"loan_amounts"`

	// Profit and fee thresholds
	MinProfitThreshold *big.Int `json:"min_profit_threshold"`
	MaxFeeCap          *big.Int `json:"max_fee_cap"`
	BasePriorityFeeCap *big.Int `json:"base_priority_fee_cap"`
	GasBuffer          float64  `json:"gas_buffer"`
	FallbackGasCost    *big.Int `json:"fallback_gas_cost"`

	// Timing
	PollInterval   time.Duration `json:"poll_interval"`
	ProbeInterval  time.Duration `json:"probe_interval"`
	ReceiptTimeout time.Duration `json:"receipt_timeout"`
	DeadlineDelta  time.Duration `json:"deadline_delta"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff"`

	// Observability
	MetricsListenAddr string `json:"metrics_listen_addr"`
}

// SecureConfig holds secrets that are never written to the config file.
type SecureConfig struct {
	PrivateKey       string
	WalletAddress    string
	TelegramBotToken string
	TelegramChatID   string
}

func (c *Config) ValidateConfig() error {
	var errors []string

	if c.ChainID == 0 {
		errors = append(errors, "chain_id must be specified")
	}
	if c.RPCEndpoint == "" {
		errors = append(errors, "rpc_endpoint must be specified")
	}
	if c.ContractAddress == (common.Address{}) {
		errors = append(errors, "contract_address must be specified")
	}
	if c.BaseToken == (common.Address{}) {
		errors = append(errors, "base_token must be specified")
	}
	if len(c.Pairs) == 0 {
		errors = append(errors, "at least one pair must be configured")
	}
	for i, p := range c.Pairs {
		if len(p.PathOut) < 2 || len(p.PathReturn) < 2 {
			errors = append(errors, fmt.Sprintf("pair %d (%s): swap paths need at least two hops", i, p.Name))
		}
	}
	if len(c.LoanAmounts) == 0 {
		errors = append(errors, "at least one loan amount must be configured")
	}
	if c.MinProfitThreshold == nil || c.MinProfitThreshold.Sign() <= 0 {
		errors = append(errors, "min_profit_threshold must be positive")
	}
	if c.MaxFeeCap == nil || c.MaxFeeCap.Sign() <= 0 {
		errors = append(errors, "max_fee_cap must be positive")
	}
	if c.BasePriorityFeeCap == nil || c.BasePriorityFeeCap.Sign() <= 0 {
		errors = append(errors, "base_priority_fee_cap must be positive")
	}
	if c.GasBuffer < 1.0 {
		errors = append(errors, "gas_buffer must be at least 1.0")
	}
	if c.PollInterval <= 0 {
		errors = append(errors, "poll_interval must be positive")
	}
	if c.ReceiptTimeout <= 0 {
		errors = append(errors, "receipt_timeout must be positive")
	}
	if c.DeadlineDelta <= 0 {
		errors = append(errors, "deadline_delta must be positive")
	}
	if c.InitialBackoff <= 0 || c.MaxBackoff < c.InitialBackoff {
		errors = append(errors, "backoff interval range is invalid")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// LoadConfig reads the JSON config file, falling back to defaults for
// any field the file leaves unset.
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".flasharb.json")
	}

	config := DefaultConfig()

	file, err := os.Open(cfgFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	} else {
		defer file.Close()
		if err := json.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func SaveConfig(cfg *Config, cfgFile string) error {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfgFile = filepath.Join(home, ".flasharb.json")
	}

	file, err := os.Create(cfgFile)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	return encoder.Encode(cfg)
}

// Mainnet deployment addresses used by the default route set.
var (
	wethAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdtAddress = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	usdcAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	uniswapRouter   = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	sushiswapRouter = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
)

// DefaultConfig mirrors the reference mainnet deployment: two WETH
// round-trip routes across Uniswap and Sushiswap V2 pools.
func DefaultConfig() *Config {
	return &Config{
		ChainID:     1,
		RPCEndpoint: "ws://localhost:8546",
		BaseToken:   wethAddress,
		RouterA:     uniswapRouter,
		RouterB:     sushiswapRouter,
		Pairs: []types.PairConfig{
			{
				Name:          "WETH/USDT",
				Token:         usdtAddress,
				TokenDecimals: 6,
				PoolA:         common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"),
				PoolB:         common.HexToAddress("0x06da0fd433C1A5d7a4faa01111c044910A184553"),
				PathOut:       []common.Address{wethAddress, usdtAddress},
				PathReturn:    []common.Address{usdtAddress, wethAddress},
			},
			{
				Name:          "USDC/WETH",
				Token:         usdcAddress,
				TokenDecimals: 6,
				PoolA:         common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
				PoolB:         common.HexToAddress("0x397FF1542f962076d0BFE58eA045FfA2d347ACa0"),
				PathOut:       []common.Address{wethAddress, usdcAddress},
				PathReturn:    []common.Address{usdcAddress, wethAddress},
			},
		},
		LoanAmounts: []*big.Int{
			utils.EtherToWei(1),
			utils.EtherToWei(10),
		},
		MinProfitThreshold: big.NewInt(1000000000000), // 0.000001 ETH
		MaxFeeCap:          utils.GweiToWei(100),
		BasePriorityFeeCap: utils.GweiToWei(2),
		GasBuffer:          1.2,
		FallbackGasCost:    big.NewInt(10000000000000000), // 0.01 ETH
		PollInterval:       time.Second,
		ProbeInterval:      time.Second,
		ReceiptTimeout:     120 * time.Second,
		DeadlineDelta:      300 * time.Second,
		InitialBackoff:     10 * time.Second,
		MaxBackoff:         600 * time.Second,
	}
}
