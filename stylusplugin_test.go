package stylusplugin

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/swordforge/stylusplugin/app/logger"
	"github.com/swordforge/stylusplugin/client"
	"github.com/swordforge/stylusplugin/contract"
	"github.com/swordforge/stylusplugin/internal/rpctest"
)

var testContract = common.HexToAddress("0xA6E41fFD769491a42A6e5Ce453259b93983a22EF")

func newTestNode(t *testing.T) *rpctest.Node {
	node := rpctest.NewNode(t, rpctest.NitroDevnodeChainID)
	parsed, err := contract.ParseABI(contract.SwordsSignatures)
	require.NoError(t, err)
	require.NoError(t, node.HandleCallValues(parsed.Methods[contract.MethodGetSwordCounts], big.NewInt(3), big.NewInt(0), big.NewInt(7)))
	node.SetCode(testContract, []byte{0xef, 0xf0, 0x00})
	return node
}

func testConfig(rpcURL string) *StylusConfig {
	return &StylusConfig{
		Contract: ContractConfig{Address: testContract.Hex(), Network: "local", RPCURL: rpcURL},
		Client:   ClientConfig{ConnectTimeout: 5 * time.Second, GasLimit: 100_000, GasPrice: "100000000"},
	}
}

func newTestClient(t *testing.T, cfg *StylusConfig) *BlockchainClient {
	c, err := NewBlockchainClient(context.Background(), Options{Config: cfg, EnvFile: "-", PrivateKey: testPrivateKey})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestNewBlockchainClient(t *testing.T) {
	node := newTestNode(t)
	c := newTestClient(t, testConfig(node.URL))
	ctx := context.Background()

	require.True(t, c.Ready())
	assert.NoError(t, c.Err())
	assert.Equal(t, testContract, c.Address())
	from, err := KeyAddress(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, from, c.From())
	assert.Zero(t, rpctest.NitroDevnodeChainID.Cmp(c.Session().ChainID()))
	assert.NotNil(t, c.Swords())
	assert.Equal(t, "local", c.Config().Contract.Network)

	t.Run("GetSwordCounts", func(t *testing.T) {
		counts, err := c.GetSwordCounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts.Red.Int64())
		assert.Equal(t, int64(0), counts.Green.Int64())
		assert.Equal(t, int64(7), counts.Blue.Int64())
	})

	t.Run("IncrementSword", func(t *testing.T) {
		tx, err := c.IncrementSword(ctx, contract.Blue)
		require.NoError(t, err)
		assert.Equal(t, testContract, *tx.To())
		assert.Zero(t, rpctest.NitroDevnodeChainID.Cmp(tx.ChainId()))
		assert.Equal(t, uint64(100_000), tx.Gas())
		assert.Equal(t, int64(100_000_000), tx.GasPrice().Int64())

		sender, err := node.Signer().Sender(tx)
		require.NoError(t, err)
		assert.Equal(t, from, sender)

		m := c.Contract().ABI().Methods[contract.MethodIncrementSword]
		args, err := m.Inputs.Unpack(tx.Data()[4:])
		require.NoError(t, err)
		assert.Equal(t, int64(contract.Blue), args[0].(*big.Int).Int64())
	})

	t.Run("IncrementSwordAndWait", func(t *testing.T) {
		receipt, err := c.IncrementSwordAndWait(ctx, contract.Red)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), receipt.Status)
		txs := node.Transactions()
		assert.Equal(t, uint64(1), txs[len(txs)-1].Nonce())
	})

	t.Run("by name", func(t *testing.T) {
		out, err := c.Call(ctx, contract.MethodGetSwordCounts)
		require.NoError(t, err)
		assert.Len(t, out, 3)
		_, err = c.Transact(ctx, contract.MethodGetSwordCounts)
		assert.ErrorIs(t, err, contract.ErrReadOnly)
		tx, err := c.Transact(ctx, contract.MethodIncrementSword, big.NewInt(1))
		require.NoError(t, err)
		receipt, err := c.WaitMined(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, tx.Hash(), receipt.TxHash)
	})
}

func TestNewBlockchainClientExtraSignatures(t *testing.T) {
	node := newTestNode(t)
	cfg := testConfig(node.URL)
	cfg.Functions.Signatures = []string{"function totalSwords() external view returns (uint256)"}
	c := newTestClient(t, cfg)

	m, ok := c.Contract().ABI().Methods["totalSwords"]
	require.True(t, ok)
	require.NoError(t, node.HandleCallValues(m, big.NewInt(10)))
	out, err := c.Call(context.Background(), "totalSwords")
	require.NoError(t, err)
	assert.Equal(t, int64(10), out[0].(*big.Int).Int64())
}

func TestNewBlockchainClientNodeGasSuggestion(t *testing.T) {
	node := newTestNode(t)
	cfg := testConfig(node.URL)
	cfg.Client.GasLimit = 0
	cfg.Client.GasPrice = ""
	c := newTestClient(t, cfg)

	tx, err := c.IncrementSword(context.Background(), contract.Green)
	require.NoError(t, err)
	assert.Equal(t, uint64(90_000), tx.Gas())
	assert.Equal(t, int64(100_000_000), tx.GasPrice().Int64())
}

func TestNewBlockchainClientErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no contract code", func(t *testing.T) {
		node := rpctest.NewNode(t, rpctest.NitroDevnodeChainID)
		cfg := testConfig(node.URL)
		cfg.Client.VerifyCode = true
		_, err := NewBlockchainClient(ctx, Options{Config: cfg, EnvFile: "-", PrivateKey: testPrivateKey})
		assert.ErrorIs(t, err, ErrNoContractCode)
	})
	t.Run("code present", func(t *testing.T) {
		cfg := testConfig(newTestNode(t).URL)
		cfg.Client.VerifyCode = true
		assert.True(t, newTestClient(t, cfg).Ready())
	})
	t.Run("bad key", func(t *testing.T) {
		_, err := NewBlockchainClient(ctx, Options{Config: testConfig("http://127.0.0.1:1"), EnvFile: "-", PrivateKey: "0xnothex"})
		assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	})
	t.Run("missing key on remote network", func(t *testing.T) {
		t.Setenv(EnvPrivateKey, "")
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Contract.Network = "arbitrum-one"
		_, err := NewBlockchainClient(ctx, Options{Config: cfg, EnvFile: "-"})
		assert.ErrorIs(t, err, ErrMissingPrivateKey)
	})
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Contract.Address = "nope"
		_, err := NewBlockchainClient(ctx, Options{Config: cfg, EnvFile: "-", PrivateKey: testPrivateKey})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
	t.Run("unreachable node", func(t *testing.T) {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Client.ConnectTimeout = 2 * time.Second
		_, err := NewBlockchainClient(ctx, Options{Config: cfg, EnvFile: "-", PrivateKey: testPrivateKey})
		assert.Error(t, err)
	})
}

func TestNotReadyClient(t *testing.T) {
	cause := errors.New("dial failed")
	c := NotReadyClient(cause)
	ctx := context.Background()

	assert.False(t, c.Ready())
	assert.ErrorIs(t, c.Err(), ErrClientNotReady)
	assert.ErrorIs(t, c.Err(), cause)
	assert.Equal(t, common.Address{}, c.Address())
	assert.Equal(t, common.Address{}, c.From())
	assert.Equal(t, DeploymentConfig{}, c.Deployment())

	_, err := c.GetSwordCounts(ctx)
	assert.ErrorIs(t, err, ErrClientNotReady)
	_, err = c.IncrementSword(ctx, contract.Red)
	assert.ErrorIs(t, err, ErrClientNotReady)
	_, err = c.IncrementSwordAndWait(ctx, contract.Red)
	assert.ErrorIs(t, err, ErrClientNotReady)
	_, err = c.Call(ctx, contract.MethodGetSwordCounts)
	assert.ErrorIs(t, err, ErrClientNotReady)
	_, err = c.Transact(ctx, contract.MethodIncrementSword, big.NewInt(0))
	assert.ErrorIs(t, err, ErrClientNotReady)
	_, err = c.WaitMined(ctx, nil)
	assert.ErrorIs(t, err, ErrClientNotReady)
	assert.NoError(t, c.Close(ctx))

	var nilClient *BlockchainClient
	assert.False(t, nilClient.Ready())
	assert.ErrorIs(t, nilClient.Err(), ErrClientNotReady)
}

func TestIncrementSwordReverted(t *testing.T) {
	node := newTestNode(t)
	c := newTestClient(t, testConfig(node.URL))
	node.RevertOn(c.Contract().ABI().Methods[contract.MethodIncrementSword])
	_, err := c.IncrementSwordAndWait(context.Background(), contract.Green)
	assert.ErrorIs(t, err, client.ErrTxFailed)
}

func TestNewBlockchainClientRedactsRPCURL(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := *logger.Default()
	logger.SetDefault(zap.New(core))
	defer logger.SetDefault(&prev)

	node := newTestNode(t)
	u, err := url.Parse(node.URL)
	require.NoError(t, err)
	u.User = url.UserPassword("player", "hunter2secret")
	u.RawQuery = "apikey=topsecretvalue"
	newTestClient(t, testConfig(u.String()))

	var rpcLogged int
	for _, e := range logs.All() {
		for k, v := range e.ContextMap() {
			s := fmt.Sprint(v)
			assert.NotContains(t, s, "hunter2secret", k)
			assert.NotContains(t, s, "topsecretvalue", k)
			if k == "rpc" {
				rpcLogged++
				assert.Equal(t, node.URL, s)
			}
		}
	}
	assert.NotZero(t, rpcLogged)
}
