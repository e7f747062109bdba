// Package client holds the JSON-RPC session used to talk to a Stylus chain:
// the connection, the chain id and the signer derived from the private key.
package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/swordforge/stylusplugin/app/logger"
)

var log = logger.NewNamed("stylus.client")

var (
	ErrNoRPCURL     = errors.New("rpc url is empty")
	ErrNoPrivateKey = errors.New("private key is nil")
	ErrTxFailed     = errors.New("transaction reverted")
)

// Options for Dial.
type Options struct {
	RPCURL     string
	PrivateKey *ecdsa.PrivateKey
	// GasLimit of 0 lets the node estimate it
	GasLimit uint64
	// GasPrice of nil uses the node suggestion (EIP-1559 when supported)
	GasPrice *big.Int
	// DialTimeout bounds connecting and the chain id request
	DialTimeout time.Duration
}

// Session is safe for concurrent use. Transactions sent through Send are
// serialized so that concurrent senders don't pick the same nonce.
type Session struct {
	backend  *ethclient.Client
	chainID  *big.Int
	signer   *bind.TransactOpts
	gasLimit uint64
	gasPrice *big.Int
	sendMu   sync.Mutex
}

// Dial connects to the RPC endpoint, fetches the chain id and builds the signer for it.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	if opts.RPCURL == "" {
		return nil, ErrNoRPCURL
	}
	if opts.PrivateKey == nil {
		return nil, ErrNoPrivateKey
	}
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	backend, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", RedactURL(opts.RPCURL), err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(opts.PrivateKey, chainID)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("create signer: %w", err)
	}
	s := &Session{
		backend:  backend,
		chainID:  chainID,
		signer:   signer,
		gasLimit: opts.GasLimit,
	}
	if opts.GasPrice != nil {
		s.gasPrice = new(big.Int).Set(opts.GasPrice)
	}
	log.Info("connected",
		zap.String("rpc", RedactURL(opts.RPCURL)),
		zap.Stringer("chainId", chainID),
		zap.String("from", signer.From.Hex()))
	return s, nil
}

func (s *Session) Backend() *ethclient.Client { return s.backend }

func (s *Session) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// From is the address of the signing account.
func (s *Session) From() common.Address { return s.signer.From }

// TransactOpts returns a fresh copy of the signer options bound to ctx.
func (s *Session) TransactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *s.signer
	opts.Context = ctx
	opts.GasLimit = s.gasLimit
	if s.gasPrice != nil {
		opts.GasPrice = new(big.Int).Set(s.gasPrice)
	}
	return &opts
}

// Send calls fn with fresh transact options while holding the send lock.
func (s *Session) Send(ctx context.Context, fn func(opts *bind.TransactOpts) (*types.Transaction, error)) (*types.Transaction, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := fn(s.TransactOpts(ctx))
	if err != nil {
		return nil, err
	}
	log.Debug("transaction sent", zap.String("tx", tx.Hash().Hex()), zap.Uint64("nonce", tx.Nonce()))
	return tx, nil
}

// WaitMined blocks until the transaction is mined. A reverted transaction
// returns the receipt together with ErrTxFailed.
func (s *Session) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s", ErrTxFailed, tx.Hash().Hex())
	}
	return receipt, nil
}

// CodeAt returns the deployed code at the latest block.
func (s *Session) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	return s.backend.CodeAt(ctx, address, nil)
}

func (s *Session) Close() {
	s.backend.Close()
}

// RedactURL drops userinfo, query and path segments that look like API keys
// (as in https://arb-mainnet.g.alchemy.com/v2/<key>) so RPC urls can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if looksLikeKey(seg) {
			segments[i] = "redacted"
		}
	}
	u.Path = strings.Join(segments, "/")
	u.RawPath = ""
	return u.String()
}

const minKeyLen = 20

func looksLikeKey(seg string) bool {
	if len(seg) < minKeyLen {
		return false
	}
	for _, r := range seg {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
