package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	MethodGetSwordCounts = "getSwordCounts"
	MethodIncrementSword = "incrementSword"
)

// SwordsSignatures is the interface of the sword counter contract.
var SwordsSignatures = []string{
	"function getSwordCounts() external view returns (uint256, uint256, uint256)",
	"function incrementSword(uint256 color) external",
}

var ErrUnknownColor = errors.New("unknown sword color")

type SwordColor uint8

const (
	Red SwordColor = iota
	Green
	Blue
)

var colorNames = [...]string{"red", "green", "blue"}

func (c SwordColor) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "color(" + strconv.Itoa(int(c)) + ")"
}

func (c SwordColor) Valid() bool {
	return int(c) < len(colorNames)
}

// ParseSwordColor accepts a color name (any case) or its index.
func ParseSwordColor(s string) (SwordColor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range colorNames {
		if s == name {
			return SwordColor(i), nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && SwordColor(n).Valid() {
		return SwordColor(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// SwordCounts holds the per-color counters stored by the contract.
type SwordCounts struct {
	Red   *big.Int
	Green *big.Int
	Blue  *big.Int
}

func (c SwordCounts) Of(color SwordColor) *big.Int {
	switch color {
	case Red:
		return c.Red
	case Green:
		return c.Green
	case Blue:
		return c.Blue
	}
	return nil
}

func (c SwordCounts) Total() *big.Int {
	total := new(big.Int)
	for _, v := range []*big.Int{c.Red, c.Green, c.Blue} {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

func (c SwordCounts) String() string {
	return fmt.Sprintf("red=%v green=%v blue=%v", c.Red, c.Green, c.Blue)
}

// Swords is the typed binding of the sword counter contract.
type Swords struct {
	*Contract
}

// NewSwords checks that the contract exposes the sword counter methods.
func NewSwords(c *Contract) (*Swords, error) {
	for _, name := range []string{MethodGetSwordCounts, MethodIncrementSword} {
		if _, err := c.method(name); err != nil {
			return nil, err
		}
	}
	return &Swords{Contract: c}, nil
}

func (s *Swords) GetSwordCounts(ctx context.Context) (SwordCounts, error) {
	out, err := s.Call(ctx, MethodGetSwordCounts)
	if err != nil {
		return SwordCounts{}, err
	}
	if len(out) != 3 {
		return SwordCounts{}, fmt.Errorf("%s returned %d values, expected 3", MethodGetSwordCounts, len(out))
	}
	return SwordCounts{
		Red:   abi.ConvertType(out[0], new(big.Int)).(*big.Int),
		Green: abi.ConvertType(out[1], new(big.Int)).(*big.Int),
		Blue:  abi.ConvertType(out[2], new(big.Int)).(*big.Int),
	}, nil
}

func (s *Swords) IncrementSword(opts *bind.TransactOpts, color SwordColor) (*types.Transaction, error) {
	if !color.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColor, color)
	}
	return s.Transact(opts, MethodIncrementSword, new(big.Int).SetUint64(uint64(color)))
}
