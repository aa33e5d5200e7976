package orchestrator

import (
	"math"
	"math/big"
)

var weiPerEther = new(big.Float).SetFloat64(1e18)

// toCenti scales a real-valued threshold or aggregate to the contract's
// integer fixed-point representation (two decimal places).
func toCenti(v float64) *big.Int {
	return big.NewInt(int64(math.Round(v * 100)))
}

func fromCenti(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return float64(v.Int64()) / 100
}

// etherToWei converts a currency amount to the chain's native value unit.
func etherToWei(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(new(big.Float).SetFloat64(amount), weiPerEther).Int(nil)
	return wei
}

func weiToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
	return ether
}

// roundPrice normalizes a currency amount to two decimal places.
func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
