package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coldchain-lab/smartdelivery/internal/contracts"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const (
	defaultGasLimit       = 2_000_000
	defaultConfirmTimeout = 90 * time.Second
	receiptPollInterval   = 2 * time.Second
)

// FunctionCall names a contract function and its arguments, encoded by the
// gateway against the SmartDelivery ABI.
type FunctionCall struct {
	Name string
	Args []any
}

// Receipt is the confirmation record for a submitted transaction. It is
// transient; callers use it to drive reconciliation and drop it.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Event is a decoded SmartDelivery contract event.
type Event struct {
	Name        string
	DeliveryID  string
	Amount      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
}

// Gateway isolates all interaction with the settlement contract.
//
// SubmitTransaction is the single most expensive and most failure-prone
// operation in the system: it blocks for seconds while the transaction
// confirms, and every caller must treat it as fallible.
type Gateway interface {
	SubmitTransaction(ctx context.Context, call FunctionCall, signerKeyHex string, value *big.Int) (*Receipt, error)
	CallRead(ctx context.Context, call FunctionCall, result any) error
	QueryEvents(ctx context.Context, eventName string, fromBlock uint64, deliveryID string) ([]Event, error)
	PendingNonce(ctx context.Context, address common.Address) (uint64, error)
}

type gateway struct {
	client          EthClient
	contractAddress common.Address
	chainID         *big.Int
	abi             abi.ABI
	confirmTimeout  time.Duration
	log             *zap.Logger
}

// NewGateway creates a Gateway bound to the SmartDelivery contract at the
// given address.
func NewGateway(client EthClient, contractAddress common.Address, chainID *big.Int, log *zap.Logger) (Gateway, error) {
	parsedABI, err := contracts.SmartDeliveryABI()
	if err != nil {
		return nil, err
	}
	return &gateway{
		client:          client,
		contractAddress: contractAddress,
		chainID:         chainID,
		abi:             parsedABI,
		confirmTimeout:  defaultConfirmTimeout,
		log:             log,
	}, nil
}

// SubmitTransaction encodes, signs, broadcasts, and confirms a contract
// call. Nonce acquisition and broadcast are a non-atomic two-step sequence;
// a collision under concurrent submission surfaces as ErrNonceConflict.
func (g *gateway) SubmitTransaction(ctx context.Context, call FunctionCall, signerKeyHex string, value *big.Int) (*Receipt, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(signerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signer key: %v", ErrSubmissionFailed, err)
	}
	from := crypto.PubkeyToAddress(privateKey.PublicKey)

	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get nonce: %v", ErrSubmissionFailed, err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get gas price: %v", ErrSubmissionFailed, err)
	}

	data, err := g.abi.Pack(call.Name, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode %s call: %v", ErrSubmissionFailed, call.Name, err)
	}

	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTransaction(nonce, g.contractAddress, value, defaultGasLimit, gasPrice, data)

	signer := types.NewEIP155Signer(g.chainID)
	signedTx, err := types.SignTx(tx, signer, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign transaction: %v", ErrSubmissionFailed, err)
	}

	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		if isNonceConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrNonceConflict, err)
		}
		return nil, fmt.Errorf("%w: broadcast failed: %v", ErrSubmissionFailed, err)
	}

	g.log.Debug("transaction broadcast",
		zap.String("function", call.Name),
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.Uint64("nonce", nonce))

	return g.waitForReceipt(ctx, signedTx.Hash())
}

// waitForReceipt polls the node until a receipt appears or the confirmation
// bound elapses. The transaction is not cancellable once broadcast: context
// cancellation here reports ErrConfirmationTimeout, it does not undo the
// submission.
func (g *gateway) waitForReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.confirmTimeout)
	defer cancel()

	var receipt *types.Receipt
	policy := backoff.WithContext(backoff.NewConstantBackOff(receiptPollInterval), waitCtx)
	err := backoff.Retry(func() error {
		var err error
		receipt, err = g.client.TransactionReceipt(waitCtx, txHash)
		if errors.Is(err, ethereum.NotFound) {
			return err // not mined yet, keep polling
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) || waitCtx.Err() != nil {
			return nil, fmt.Errorf("%w: tx %s", ErrConfirmationTimeout, txHash.Hex())
		}
		return nil, fmt.Errorf("%w: failed to fetch receipt for %s: %v", ErrSubmissionFailed, txHash.Hex(), err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%w: tx %s (block %d)", ErrTxReverted, txHash.Hex(), receipt.BlockNumber.Uint64())
	}

	return &Receipt{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// CallRead executes a view function and unpacks the result into the given
// struct.
func (g *gateway) CallRead(ctx context.Context, call FunctionCall, result any) error {
	data, err := g.abi.Pack(call.Name, call.Args...)
	if err != nil {
		return fmt.Errorf("failed to encode %s call: %w", call.Name, err)
	}

	output, err := g.client.CallContract(ctx, ethereum.CallMsg{
		To:   &g.contractAddress,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("contract read %s failed: %w", call.Name, err)
	}

	if err := g.abi.UnpackIntoInterface(result, call.Name, output); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", call.Name, err)
	}
	return nil
}

// QueryEvents returns decoded contract events named eventName from
// fromBlock onward. When deliveryID is non-empty, only events scoped to
// that delivery are returned; the deliveryId argument is not indexed on
// the contract, so filtering happens after decoding.
func (g *gateway) QueryEvents(ctx context.Context, eventName string, fromBlock uint64, deliveryID string) ([]Event, error) {
	eventDef, ok := g.abi.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown contract event %q", eventName)
	}

	logs, err := g.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{g.contractAddress},
		Topics:    [][]common.Hash{{eventDef.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s events: %w", eventName, err)
	}

	events := make([]Event, 0, len(logs))
	for _, vLog := range logs {
		values, err := g.abi.Unpack(eventName, vLog.Data)
		if err != nil {
			g.log.Warn("skipping undecodable event log",
				zap.String("event", eventName),
				zap.String("tx_hash", vLog.TxHash.Hex()),
				zap.Error(err))
			continue
		}

		event := Event{
			Name:        eventName,
			BlockNumber: vLog.BlockNumber,
			TxHash:      vLog.TxHash,
		}
		if len(values) > 0 {
			if id, ok := values[0].(string); ok {
				event.DeliveryID = id
			}
		}
		if len(values) > 1 {
			if amount, ok := values[1].(*big.Int); ok {
				event.Amount = amount
			}
		}

		if deliveryID != "" && event.DeliveryID != deliveryID {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// PendingNonce returns the next nonce for the given address.
func (g *gateway) PendingNonce(ctx context.Context, address common.Address) (uint64, error) {
	return g.client.PendingNonceAt(ctx, address)
}
