package rewardtoken

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex   = "0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	testContract = "0xbBc15128bb4c9Ccb99B63e768Ec83a233b1DbeE6"
	testOwner    = "0xEFd2E9d8E8Cf622B3bBB493C97538BdfD9f00B96"
)

// fakeBackend answers token calls from memory and records sent transactions.
type fakeBackend struct {
	mu sync.Mutex

	balances    map[common.Address]*big.Int
	totalSupply *big.Int
	maxSupply   *big.Int
	name        string
	symbol      string
	nonce       uint64

	head     uint64
	code     map[common.Address][]byte
	receipts map[common.Hash]*types.Receipt
	// headStep advances head on every BlockNumber call.
	headStep uint64

	callErr     error
	estimateErr error
	sendErr     error

	calls int
	sent  []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balances:    map[common.Address]*big.Int{},
		totalSupply: big.NewInt(0),
		maxSupply:   big.NewInt(0),
		name:        "Reward Token",
		symbol:      "FCRT",
		nonce:       7,
		head:        1000,
		code:        map[common.Address][]byte{},
		receipts:    map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(8453), nil }

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	m, err := tokenABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "balanceOf":
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		bal := f.balances[args[0].(common.Address)]
		if bal == nil {
			bal = big.NewInt(0)
		}
		return m.Outputs.Pack(bal)
	case "totalSupply":
		return m.Outputs.Pack(f.totalSupply)
	case "maxSupply":
		return m.Outputs.Pack(f.maxSupply)
	case "name":
		return m.Outputs.Pack(f.name)
	case "symbol":
		return m.Outputs.Pack(f.symbol)
	}
	return nil, errors.New("unsupported call " + m.Name)
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 50_000, nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1000), BaseFee: big.NewInt(2_000_000_000)}, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_500_000_000), nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	if tx.To() == nil {
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			return err
		}
		addr := crypto.CreateAddress(from, tx.Nonce())
		f.code[addr] = []byte{0x60, 0x80}
		f.receipts[tx.Hash()] = &types.Receipt{
			Status:          types.ReceiptStatusSuccessful,
			ContractAddress: addr,
			BlockNumber:     new(big.Int).SetUint64(f.head + 1),
		}
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) CodeAt(_ context.Context, a common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code[a], nil
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head += f.headStep
	return f.head, nil
}

// revertErr mimics the JSON-RPC error returned by nodes for reverted calls.
type revertErr struct{ data string }

func (e revertErr) Error() string          { return "execution reverted" }
func (e revertErr) ErrorCode() int         { return 3 }
func (e revertErr) ErrorData() interface{} { return e.data }

func newRevertErr(t *testing.T, reason string) error {
	t.Helper()
	strType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	payload, err := abi.Arguments{{Type: strType}}.Pack(reason)
	require.NoError(t, err)
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	return revertErr{data: hexutil.Encode(append(selector, payload...))}
}

// newCustomRevertErr encodes a custom error of the token ABI as revert data.
func newCustomRevertErr(t *testing.T, name string, args ...any) error {
	t.Helper()
	e, ok := tokenABI.Errors[name]
	require.True(t, ok, name)
	payload, err := e.Inputs.Pack(args...)
	require.NoError(t, err)
	return revertErr{data: hexutil.Encode(append(append([]byte{}, e.ID[:4]...), payload...))}
}

func testConfig(t *testing.T, contract string) ContractConfig {
	t.Helper()
	cfg, err := NewContractConfig(contract, testKeyHex, "http://localhost:8545", big.NewInt(8453))
	require.NoError(t, err)
	return cfg
}

// decodeCall returns the method name and arguments of a sent transaction.
func decodeCall(t *testing.T, tx *types.Transaction) (string, []interface{}) {
	t.Helper()
	m, err := tokenABI.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	return m.Name, args
}
