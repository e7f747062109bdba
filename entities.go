package stylusplugin

import (
	"math/big"
	"time"
)

// StylusConfig mirrors Stylus.toml.
type StylusConfig struct {
	Contract   ContractConfig   `mapstructure:"contract"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Functions  FunctionsConfig  `mapstructure:"functions"`
	Client     ClientConfig     `mapstructure:"client"`
}

type ContractConfig struct {
	Address string `mapstructure:"address"`
	Network string `mapstructure:"network"`
	RPCURL  string `mapstructure:"rpc_url"`
}

// DeploymentConfig is what cargo stylus reported when the contract was deployed.
// The values are informational and kept as strings.
type DeploymentConfig struct {
	TxHash           string `mapstructure:"tx_hash"`
	ActivationTxHash string `mapstructure:"activation_tx_hash"`
	ContractSize     string `mapstructure:"contract_size"`
	WasmSize         string `mapstructure:"wasm_size"`
	WasmDataFee      string `mapstructure:"wasm_data_fee"`
}

type FunctionsConfig struct {
	// Signatures are human-readable declarations, e.g.
	// "function incrementSword(uint256 color) external"
	Signatures []string `mapstructure:"signatures"`
}

type ClientConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	GasLimit       uint64        `mapstructure:"gas_limit"`
	// GasPrice in wei, decimal. Empty uses the node suggestion.
	GasPrice   string `mapstructure:"gas_price"`
	VerifyCode bool   `mapstructure:"verify_code"`

	gasPrice *big.Int
}

// GasPriceWei returns the parsed gas price or nil.
func (c ClientConfig) GasPriceWei() *big.Int {
	if c.gasPrice == nil {
		return nil
	}
	return new(big.Int).Set(c.gasPrice)
}
