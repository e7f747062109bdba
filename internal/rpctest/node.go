// Package rpctest runs an in-process JSON-RPC node answering the subset of the
// eth namespace used by the stylus client. It is meant for tests.
package rpctest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// NitroDevnodeChainID is the chain id of a local nitro devnode.
var NitroDevnodeChainID = big.NewInt(412346)

// CallHandler answers eth_call for one method selector with ABI encoded output.
type CallHandler func(input []byte) ([]byte, error)

type Node struct {
	URL     string
	chainID *big.Int

	mu       sync.Mutex
	gasPrice *big.Int
	code     map[common.Address][]byte
	handlers map[[4]byte]CallHandler
	nonces   map[common.Address]uint64
	txs      []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	failing  map[[4]byte]bool

	server *rpc.Server
	http   *httptest.Server
}

// NewNode starts the node; it is stopped when the test finishes.
func NewNode(t testing.TB, chainID *big.Int) *Node {
	t.Helper()
	n := &Node{
		chainID:  new(big.Int).Set(chainID),
		gasPrice: big.NewInt(100_000_000),
		code:     make(map[common.Address][]byte),
		handlers: make(map[[4]byte]CallHandler),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		failing:  make(map[[4]byte]bool),
		server:   rpc.NewServer(),
	}
	if err := n.server.RegisterName("eth", &ethService{n: n}); err != nil {
		t.Fatalf("register eth service: %v", err)
	}
	n.http = httptest.NewServer(n.server)
	n.URL = n.http.URL
	t.Cleanup(n.Close)
	return n
}

func (n *Node) Close() {
	n.http.Close()
	n.server.Stop()
}

func (n *Node) SetCode(address common.Address, code []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.code[address] = code
}

// HandleCall registers the eth_call answer for the method.
func (n *Node) HandleCall(m abi.Method, fn CallHandler) {
	var sel [4]byte
	copy(sel[:], m.ID)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[sel] = fn
}

// HandleCallValues answers the method with the given values, packed as its outputs.
func (n *Node) HandleCallValues(m abi.Method, values ...any) error {
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		return err
	}
	n.HandleCall(m, func([]byte) ([]byte, error) { return out, nil })
	return nil
}

// RevertOn makes transactions invoking the method get a failed receipt.
func (n *Node) RevertOn(m abi.Method) {
	var sel [4]byte
	copy(sel[:], m.ID)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[sel] = true
}

// Transactions returns the transactions received so far.
func (n *Node) Transactions() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.txs...)
}

// Signer returns the signer matching the node chain id.
func (n *Node) Signer() types.Signer {
	return types.LatestSignerForChainID(n.chainID)
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a callArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

func selector(data []byte) (sel [4]byte, ok bool) {
	if len(data) < 4 {
		return sel, false
	}
	copy(sel[:], data[:4])
	return sel, true
}

// ethService methods map to eth_<lowerCamelName>
type ethService struct {
	n *Node
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(s.n.chainID)
}

func (s *ethService) GasPrice() *hexutil.Big {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return (*hexutil.Big)(new(big.Int).Set(s.n.gasPrice))
}

func (s *ethService) GetBlockByNumber(number string, full bool) (*types.Header, error) {
	return &types.Header{
		Number:     big.NewInt(1),
		Difficulty: big.NewInt(0),
		GasLimit:   30_000_000,
	}, nil
}

func (s *ethService) GetCode(address common.Address, block string) hexutil.Bytes {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return s.n.code[address]
}

func (s *ethService) GetTransactionCount(address common.Address, block string) hexutil.Uint64 {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return hexutil.Uint64(s.n.nonces[address])
}

func (s *ethService) EstimateGas(args callArgs) hexutil.Uint64 {
	return 90_000
}

func (s *ethService) Call(ctx context.Context, args callArgs, block string) (hexutil.Bytes, error) {
	sel, ok := selector(args.data())
	if !ok {
		return nil, errors.New("execution reverted")
	}
	s.n.mu.Lock()
	fn, ok := s.n.handlers[sel]
	s.n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("execution reverted: no handler for %x", sel)
	}
	return fn(args.data())
}

func (s *ethService) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return common.Hash{}, err
	}
	if tx.ChainId().Cmp(s.n.chainID) != 0 {
		return common.Hash{}, fmt.Errorf("invalid chain id %v", tx.ChainId())
	}
	from, err := types.Sender(s.n.Signer(), tx)
	if err != nil {
		return common.Hash{}, err
	}

	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	if tx.Nonce() != s.n.nonces[from] {
		return common.Hash{}, fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), s.n.nonces[from])
	}
	s.n.nonces[from]++
	s.n.txs = append(s.n.txs, tx)

	status := types.ReceiptStatusSuccessful
	if sel, ok := selector(tx.Data()); ok && s.n.failing[sel] {
		status = types.ReceiptStatusFailed
	}
	s.n.receipts[tx.Hash()] = &types.Receipt{
		Type:              tx.Type(),
		Status:            status,
		CumulativeGasUsed: tx.Gas(),
		GasUsed:           tx.Gas(),
		Logs:              []*types.Log{},
		TxHash:            tx.Hash(),
		BlockNumber:       big.NewInt(int64(len(s.n.txs))),
		EffectiveGasPrice: tx.GasPrice(),
	}
	return tx.Hash(), nil
}

func (s *ethService) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	return s.n.receipts[hash]
}
