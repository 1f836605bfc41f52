package rewardtoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ligun0805/reward-bridge/internal/metrics"
)

const (
	// DefaultConfirmations is how many blocks, counting the inclusion block,
	// a deployment waits for before it is reported done.
	DefaultConfirmations = 5
	defaultPollInterval  = 2 * time.Second
)

// DeployBackend adds what waiting on a contract creation needs to Backend.
type DeployBackend interface {
	Backend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

var _ DeployBackend = (*ethclient.Client)(nil)

// Deployment is a mined and confirmed token contract creation.
type Deployment struct {
	Address common.Address
	Owner   common.Address
	Tx      *types.Transaction
	Block   uint64
	Config  ContractConfig
}

// Deployer creates RewardToken(owner) contracts with the signing key of cfg.
type Deployer struct {
	cfg     ContractConfig
	backend DeployBackend
	writer  *Writer

	Confirmations uint64
	PollInterval  time.Duration
	Logf          func(format string, a ...any)
}

// NewDeployer returns a Deployer that waits for DefaultConfirmations blocks.
func NewDeployer(cfg ContractConfig, backend DeployBackend) *Deployer {
	return &Deployer{
		cfg:           cfg,
		backend:       backend,
		writer:        NewWriter(cfg, backend),
		Confirmations: DefaultConfirmations,
		PollInterval:  defaultPollInterval,
	}
}

// SetGasBufferPct changes the gas estimate buffer of the creation tx.
func (d *Deployer) SetGasBufferPct(pct int64) { d.writer.GasBufferPct = pct }

func (d *Deployer) logf(format string, a ...any) {
	if d.Logf != nil {
		d.Logf(format, a...)
	}
}

// Deploy sends the creation tx for bytecode with owner as the constructor
// argument, waits until the contract has code and then for Confirmations
// blocks. The contract address is reported in the returned Deployment even
// when the confirmation wait is cut short by ctx.
func (d *Deployer) Deploy(ctx context.Context, bytecode []byte, owner string) (dep *Deployment, err error) {
	if d.cfg.key == nil {
		return nil, ErrNoSigningKey
	}
	ownerAddr, err := ParseAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if len(bytecode) == 0 {
		return nil, errors.New("empty contract bytecode")
	}
	defer func() { metrics.Chain().ObserveWrite("deploy", err) }()

	args, err := tokenABI.Pack("", ownerAddr)
	if err != nil {
		return nil, fmt.Errorf("deploy: pack constructor: %w", err)
	}
	data := append(append([]byte{}, bytecode...), args...)

	d.writer.Logf = d.Logf
	tx, err := d.writer.send(ctx, "deploy", nil, data)
	if err != nil {
		return nil, err
	}
	d.logf("deploy: tx %s sent, waiting for the contract", tx.Hash().Hex())

	addr, err := bind.WaitDeployed(ctx, d.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", tx.Hash().Hex(), err)
	}
	receipt, err := d.backend.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("deploy receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &RevertError{Method: "deploy", Err: fmt.Errorf("tx %s failed", tx.Hash().Hex())}
	}
	dep = &Deployment{
		Address: addr,
		Owner:   ownerAddr,
		Tx:      tx,
		Config:  d.cfg.WithAddress(addr),
	}
	if receipt.BlockNumber != nil {
		dep.Block = receipt.BlockNumber.Uint64()
	}
	d.logf("deploy: contract %s created in block %d", addr.Hex(), dep.Block)

	if err := d.waitConfirmations(ctx, dep.Block); err != nil {
		return dep, err
	}
	return dep, nil
}

// waitConfirmations polls the head until block has Confirmations blocks on
// top of it, the block itself included.
func (d *Deployer) waitConfirmations(ctx context.Context, block uint64) error {
	if d.Confirmations <= 1 {
		return nil
	}
	target := block + d.Confirmations - 1
	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	for {
		head, err := d.backend.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("head: %w", err)
		}
		if head >= target {
			d.logf("deploy: %d confirmations at head %d", d.Confirmations, head)
			return nil
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ParseBytecode accepts a Hardhat artifact ({"bytecode": "0x..."}), a Foundry
// artifact ({"bytecode": {"object": "0x..."}}) or a bare hex string.
func ParseBytecode(b []byte) ([]byte, error) {
	raw := strings.TrimSpace(string(b))
	if strings.HasPrefix(raw, "{") {
		var art struct {
			Bytecode json.RawMessage `json:"bytecode"`
		}
		if err := json.Unmarshal([]byte(raw), &art); err != nil {
			return nil, fmt.Errorf("artifact: %w", err)
		}
		var s string
		if err := json.Unmarshal(art.Bytecode, &s); err != nil {
			var obj struct {
				Object string `json:"object"`
			}
			if err := json.Unmarshal(art.Bytecode, &obj); err != nil {
				return nil, errors.New("artifact: no bytecode field")
			}
			s = obj.Object
		}
		raw = s
	}
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}
	code, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	if len(code) == 0 {
		return nil, errors.New("bytecode: empty")
	}
	return code, nil
}
