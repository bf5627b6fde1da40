package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/primeflash/flasharb/chain"
	"github.com/primeflash/flasharb/contract"
)

// ExecutionContext owns everything a submission needs: the chain client,
// the contract binding, the signing key and the nonce ledger. It is
// passed into components explicitly; nothing here lives in package
// globals.
type ExecutionContext struct {
	Client  chain.Client
	Binding *contract.Binding
	Ledger  *NonceLedger
	Key     *ecdsa.PrivateKey
	From    common.Address
	ChainID *big.Int
}

// NewExecutionContext derives the sending address from the key and pins
// the chain ID once at startup.
func NewExecutionContext(ctx context.Context, client chain.Client, binding *contract.Binding, privateKeyHex string) (*ExecutionContext, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	return &ExecutionContext{
		Client:  client,
		Binding: binding,
		Ledger:  NewNonceLedger(client, from),
		Key:     key,
		From:    from,
		ChainID: chainID,
	}, nil
}
