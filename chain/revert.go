package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// errorSelector is the 4-byte selector of Error(string).
var errorSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

// DecodeRevert extracts a human-readable reason from raw revert return
// data. Falls back to the hex payload when the data is not an
// Error(string) encoding.
func DecodeRevert(data []byte) string {
	if len(data) == 0 {
		return "execution reverted"
	}
	if len(data) >= 4 && [4]byte(data[:4]) == errorSelector {
		stringTy, _ := abi.NewType("string", "", nil)
		args := abi.Arguments{{Type: stringTy}}
		if decoded, err := args.Unpack(data[4:]); err == nil && len(decoded) == 1 {
			if reason, ok := decoded[0].(string); ok {
				return reason
			}
		}
	}
	return fmt.Sprintf("raw revert data: %s", hexutil.Encode(data))
}

// RevertReasonFromError pulls revert data out of an RPC call error.
// go-ethereum surfaces it behind the rpc.DataError interface.
func RevertReasonFromError(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := err.(interface{ ErrorData() interface{} }); ok {
		if hexData, ok := de.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(hexData); decErr == nil {
				return DecodeRevert(data)
			}
		}
	}
	return err.Error()
}

// RevertDecoder replays mined transactions to recover their revert
// reason. Decoded reasons are memoized since a hash's outcome never
// changes once mined.
type RevertDecoder struct {
	client Client
	cache  *lru.Cache
	logger *zap.Logger
}

func NewRevertDecoder(client Client, logger *zap.Logger) (*RevertDecoder, error) {
	cache, err := lru.New(256)
	if err != nil {
		return nil, fmt.Errorf("failed to create revert cache: %w", err)
	}
	return &RevertDecoder{
		client: client,
		cache:  cache,
		logger: logger,
	}, nil
}

// MinedReason re-executes a mined transaction as a read-only call at
// its inclusion block and decodes the revert payload.
func (d *RevertDecoder) MinedReason(ctx context.Context, txHash common.Hash, from common.Address, blockNumber *big.Int) string {
	if cached, ok := d.cache.Get(txHash); ok {
		return cached.(string)
	}

	tx, _, err := d.client.TransactionByHash(ctx, txHash)
	if err != nil {
		return fmt.Sprintf("error fetching transaction: %v", err)
	}

	reason := d.replay(ctx, tx, from, blockNumber)
	d.cache.Add(txHash, reason)
	return reason
}

func (d *RevertDecoder) replay(ctx context.Context, tx *ethtypes.Transaction, from common.Address, blockNumber *big.Int) string {
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	result, err := d.client.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return RevertReasonFromError(err)
	}

	// The call succeeded on replay; the failure was state-dependent.
	d.logger.Debug("Replay of failed transaction succeeded",
		zap.String("tx_hash", tx.Hash().Hex()))
	return DecodeRevert(result)
}
