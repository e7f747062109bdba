// Package contract binds Stylus contracts described by human-readable function
// signatures to a go-ethereum backend.
package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrUnknownMethod = errors.New("unknown contract method")
	ErrNotConstant   = errors.New("method changes state, send a transaction instead")
	ErrReadOnly      = errors.New("method is read-only, call it instead")
)

// Contract is a contract instance bound to an address.
type Contract struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

// New binds the ABI to the address. The backend is used for calls, transactions and log filtering.
func New(address common.Address, parsed abi.ABI, backend bind.ContractBackend) *Contract {
	return &Contract{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// NewFromSignatures parses the signatures and binds the result.
func NewFromSignatures(address common.Address, signatures []string, backend bind.ContractBackend) (*Contract, error) {
	parsed, err := ParseABI(signatures)
	if err != nil {
		return nil, err
	}
	return New(address, parsed, backend), nil
}

func (c *Contract) Address() common.Address { return c.address }

func (c *Contract) ABI() abi.ABI { return c.abi }

// Methods returns the method names known to the binding.
func (c *Contract) Methods() []string {
	names := make([]string, 0, len(c.abi.Methods))
	for name := range c.abi.Methods {
		names = append(names, name)
	}
	return names
}

func (c *Contract) method(name string) (abi.Method, error) {
	m, ok := c.abi.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return m, nil
}

// Call invokes a view or pure method at the latest block and returns the decoded outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	return c.CallWithOpts(&bind.CallOpts{Context: ctx}, method, args...)
}

// CallWithOpts is like Call but lets the caller pin the block, sender or pending state.
func (c *Contract) CallWithOpts(opts *bind.CallOpts, method string, args ...any) ([]any, error) {
	m, err := c.method(method)
	if err != nil {
		return nil, err
	}
	if !m.IsConstant() {
		return nil, fmt.Errorf("%w: %s", ErrNotConstant, method)
	}
	var out []any
	if err = c.bound.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

// Transact signs and sends a transaction invoking the method.
func (c *Contract) Transact(opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error) {
	m, err := c.method(method)
	if err != nil {
		return nil, err
	}
	if m.IsConstant() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, method)
	}
	tx, err := c.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("transact %s: %w", method, err)
	}
	return tx, nil
}
