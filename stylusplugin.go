// Package stylusplugin connects a host app to a Stylus contract. Adding
// BlockchainPlugin to the app makes a *BlockchainClient resource available to
// every system once startup is done.
package stylusplugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/swordforge/stylusplugin/app/logger"
	"github.com/swordforge/stylusplugin/client"
	"github.com/swordforge/stylusplugin/contract"
)

var log = logger.NewNamed("stylus")

var (
	ErrClientNotReady = errors.New("blockchain client is not initialized")
	ErrNoContractCode = errors.New("no contract code at address")
)

// Options for creating a BlockchainClient.
type Options struct {
	// ConfigPath defaults to STYLUS_CONFIG or Stylus.toml
	ConfigPath string
	// Config skips reading ConfigPath when set
	Config *StylusConfig
	// EnvFile defaults to .env, "-" skips loading it
	EnvFile string
	// PrivateKey overrides PRIVATE_KEY
	PrivateKey string
}

// BlockchainClient is the resource exposed to systems. A client that failed
// to initialize is still inserted; Ready reports which one a system got.
type BlockchainClient struct {
	config   *StylusConfig
	session  *client.Session
	contract *contract.Contract
	swords   *contract.Swords
	initErr  error
}

// NewBlockchainClient loads the configuration and the key, connects to the
// RPC endpoint and binds the contract.
func NewBlockchainClient(ctx context.Context, opts Options) (*BlockchainClient, error) {
	if opts.EnvFile != "-" {
		if err := LoadEnvFile(opts.EnvFile); err != nil {
			log.Warn("can't load env file", zap.Error(err))
		}
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = LoadConfig(opts.ConfigPath); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.InfoCtx(ctx, "loaded Stylus configuration",
		zap.String("contract", cfg.Contract.Address),
		zap.String("network", cfg.Contract.Network),
		zap.String("rpc", client.RedactURL(cfg.Contract.RPCURL)),
		zap.Int("signatures", len(cfg.Functions.Signatures)))

	keyHex, source, err := ResolvePrivateKey(opts.PrivateKey, cfg)
	if err != nil {
		return nil, err
	}
	log.InfoCtx(ctx, "using private key", zap.String("key", RedactKey(keyHex)), zap.String("source", source))
	key, err := ParsePrivateKey(keyHex)
	if err != nil {
		return nil, err
	}

	session, err := client.Dial(ctx, client.Options{
		RPCURL:      cfg.Contract.RPCURL,
		PrivateKey:  key,
		GasLimit:    cfg.Client.GasLimit,
		GasPrice:    cfg.Client.GasPriceWei(),
		DialTimeout: cfg.Client.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}

	c, err := bindContract(ctx, cfg, session)
	if err != nil {
		session.Close()
		return nil, err
	}
	log.InfoCtx(ctx, "blockchain client initialized",
		zap.String("contract", c.contract.Address().Hex()),
		zap.Stringer("chainId", session.ChainID()))
	return c, nil
}

func bindContract(ctx context.Context, cfg *StylusConfig, session *client.Session) (*BlockchainClient, error) {
	address := cfg.ContractAddress()
	if cfg.Client.VerifyCode {
		code, err := session.CodeAt(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("get code: %w", err)
		}
		if len(code) == 0 {
			return nil, fmt.Errorf("%w %s", ErrNoContractCode, address.Hex())
		}
	}

	signatures := append(append([]string{}, contract.SwordsSignatures...), cfg.Functions.Signatures...)
	bound, err := contract.NewFromSignatures(address, signatures, session.Backend())
	if err != nil {
		return nil, err
	}
	swords, err := contract.NewSwords(bound)
	if err != nil {
		return nil, err
	}
	return &BlockchainClient{
		config:   cfg,
		session:  session,
		contract: bound,
		swords:   swords,
	}, nil
}

// NotReadyClient returns the placeholder resource inserted when initialization fails.
func NotReadyClient(cause error) *BlockchainClient {
	return &BlockchainClient{initErr: cause}
}

func (c *BlockchainClient) Ready() bool {
	return c != nil && c.session != nil
}

// Err returns the initialization error of a client that isn't ready.
func (c *BlockchainClient) Err() error {
	if c.Ready() {
		return nil
	}
	if c == nil || c.initErr == nil {
		return ErrClientNotReady
	}
	return fmt.Errorf("%w: %w", ErrClientNotReady, c.initErr)
}

func (c *BlockchainClient) Config() *StylusConfig { return c.config }

func (c *BlockchainClient) Session() *client.Session { return c.session }

func (c *BlockchainClient) Contract() *contract.Contract { return c.contract }

func (c *BlockchainClient) Swords() *contract.Swords { return c.swords }

// Address is the contract address, zero when not ready.
func (c *BlockchainClient) Address() common.Address {
	if !c.Ready() {
		return common.Address{}
	}
	return c.contract.Address()
}

// From is the signing account, zero when not ready.
func (c *BlockchainClient) From() common.Address {
	if !c.Ready() {
		return common.Address{}
	}
	return c.session.From()
}

func (c *BlockchainClient) Deployment() DeploymentConfig {
	if c.config == nil {
		return DeploymentConfig{}
	}
	return c.config.Deployment
}

func (c *BlockchainClient) GetSwordCounts(ctx context.Context) (contract.SwordCounts, error) {
	if !c.Ready() {
		return contract.SwordCounts{}, c.Err()
	}
	return c.swords.GetSwordCounts(ctx)
}

func (c *BlockchainClient) IncrementSword(ctx context.Context, color contract.SwordColor) (*types.Transaction, error) {
	if !c.Ready() {
		return nil, c.Err()
	}
	return c.session.Send(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.swords.IncrementSword(opts, color)
	})
}

// IncrementSwordAndWait sends incrementSword and waits for the receipt.
func (c *BlockchainClient) IncrementSwordAndWait(ctx context.Context, color contract.SwordColor) (*types.Receipt, error) {
	tx, err := c.IncrementSword(ctx, color)
	if err != nil {
		return nil, err
	}
	return c.session.WaitMined(ctx, tx)
}

// Call invokes a read-only method by name, see contract.Contract.Call.
func (c *BlockchainClient) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	if !c.Ready() {
		return nil, c.Err()
	}
	return c.contract.Call(ctx, method, args...)
}

// Transact sends a transaction invoking the method by name.
func (c *BlockchainClient) Transact(ctx context.Context, method string, args ...any) (*types.Transaction, error) {
	if !c.Ready() {
		return nil, c.Err()
	}
	return c.session.Send(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return c.contract.Transact(opts, method, args...)
	})
}

func (c *BlockchainClient) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if !c.Ready() {
		return nil, c.Err()
	}
	return c.session.WaitMined(ctx, tx)
}

// Close releases the RPC connection. The app calls it on shutdown.
func (c *BlockchainClient) Close(ctx context.Context) error {
	if c.Ready() {
		c.session.Close()
	}
	return nil
}
