package stylusplugin

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/swordforge/stylusplugin/contract"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// ConfigPath resolves the config location: the explicit path, then STYLUS_CONFIG, then Stylus.toml.
func ConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigFile
}

// LoadConfig reads and validates Stylus.toml. Every key can be overridden by
// an environment variable like STYLUS_CONTRACT_RPC_URL. The signatures list is
// read from STYLUS_FUNCTIONS_SIGNATURES separated by ';'.
func LoadConfig(path string) (*StylusConfig, error) {
	path = ConfigPath(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so that env-only keys are picked up by Unmarshal
	v.SetDefault("contract.address", "")
	v.SetDefault("contract.network", "")
	v.SetDefault("contract.rpc_url", "")
	v.SetDefault("deployment.tx_hash", "")
	v.SetDefault("deployment.activation_tx_hash", "")
	v.SetDefault("deployment.contract_size", "")
	v.SetDefault("deployment.wasm_size", "")
	v.SetDefault("deployment.wasm_data_fee", "")
	v.SetDefault("functions.signatures", []string{})
	v.SetDefault("client.connect_timeout", DefaultConnectTimeout)
	v.SetDefault("client.gas_limit", 0)
	v.SetDefault("client.gas_price", "")
	v.SetDefault("client.verify_code", false)

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg := &StylusConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	// viper splits list overrides on commas, which signatures contain
	if env := os.Getenv(EnvSignatures); env != "" {
		cfg.Functions.Signatures = SplitSignatures(env)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SplitSignatures splits a list of function signatures separated by ';' or newlines.
func SplitSignatures(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' })
	sigs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			sigs = append(sigs, f)
		}
	}
	return sigs
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks required fields and normalizes the rest. It is called by LoadConfig.
func (c *StylusConfig) Validate() error {
	c.Contract.Address = strings.TrimSpace(c.Contract.Address)
	c.Contract.Network = strings.TrimSpace(c.Contract.Network)
	c.Contract.RPCURL = strings.TrimSpace(c.Contract.RPCURL)

	if c.Contract.Address == "" {
		return invalid("contract.address is required")
	}
	if !common.IsHexAddress(c.Contract.Address) {
		return invalid("contract.address %q is not a hex address", c.Contract.Address)
	}
	if c.Contract.RPCURL == "" {
		return invalid("contract.rpc_url is required")
	}
	u, err := url.Parse(c.Contract.RPCURL)
	if err != nil {
		return invalid("contract.rpc_url: %v", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return invalid("contract.rpc_url scheme %q is not supported", u.Scheme)
	}

	if c.Client.ConnectTimeout < 0 {
		return invalid("client.connect_timeout must not be negative")
	}
	if c.Client.ConnectTimeout == 0 {
		c.Client.ConnectTimeout = DefaultConnectTimeout
	}
	c.Client.gasPrice = nil
	if gp := strings.TrimSpace(c.Client.GasPrice); gp != "" {
		price, ok := new(big.Int).SetString(gp, 10)
		if !ok || price.Sign() < 0 {
			return invalid("client.gas_price %q is not a wei amount", c.Client.GasPrice)
		}
		c.Client.gasPrice = price
	}

	for _, sig := range c.Functions.Signatures {
		if _, err := contract.ParseSignature(sig); err != nil {
			return fmt.Errorf("%w: functions.signatures: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ContractAddress returns the parsed contract address.
func (c *StylusConfig) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract.Address)
}

// IsLocalNetwork reports whether the network allows the devnode key fallback.
func (c *StylusConfig) IsLocalNetwork() bool {
	return slices.Contains(LocalNetworks, strings.ToLower(c.Contract.Network))
}
