package stylusplugin

import "time"

// Environment variable names
const (
	EnvPrivateKey = "PRIVATE_KEY"
	EnvConfigPath = "STYLUS_CONFIG"
	// EnvPrefix prefixes overrides of Stylus.toml keys, e.g. STYLUS_CONTRACT_RPC_URL
	EnvPrefix = "STYLUS"
	// EnvSignatures holds function signatures separated by ';' or newlines
	EnvSignatures = "STYLUS_FUNCTIONS_SIGNATURES"
)

// DefaultConfigFile is looked up in the working directory, which is the project root
// when the host is started with `go run`.
const DefaultConfigFile = "Stylus.toml"

// DefaultEnvFile is loaded before the private key is read. It is optional.
const DefaultEnvFile = ".env"

const DefaultConnectTimeout = 10 * time.Second

// DevnodePrivateKey is the prefunded account of the nitro devnode. It is only
// used when PRIVATE_KEY is unset and the configured network is a local one.
const DevnodePrivateKey = "0xb6b15c8cb491557369f3c7d2c287b053eb229daa9c22138887752191c9520659"

// LocalNetworks are the network names that allow falling back to DevnodePrivateKey
var LocalNetworks = []string{"local", "devnode", "nitro-devnode"}

// InitSystemName is the name of the startup system inserting the BlockchainClient
const InitSystemName = "stylus.init_blockchain"

const PluginName = "stylus.blockchain"
