package utils

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// EtherToWei converts a whole-ether amount to wei.
func EtherToWei(ether int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(ether), big.NewInt(params.Ether))
}

// GweiToWei converts a gwei amount to wei.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}

// WeiToEtherString renders a wei amount as a decimal ether string for
// logs and notifications.
func WeiToEtherString(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(params.Ether))
	return f.Text('f', 6)
}

// WeiToGweiString renders a wei amount in gwei for fee diagnostics.
func WeiToGweiString(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(params.GWei))
	return f.Text('f', 2)
}

// ScaleToWei rescales an amount expressed in a token's smallest unit to
// 18-decimal wei so fee legs in different denominations can be summed.
func ScaleToWei(amount *big.Int, decimals uint8) *big.Int {
	if decimals >= 18 {
		return new(big.Int).Set(amount)
	}
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
	return new(big.Int).Mul(amount, exp)
}
