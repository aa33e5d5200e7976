package chain

import (
	"math/big"

	"github.com/coldchain-lab/smartdelivery/internal/models"
	"github.com/ethereum/go-ethereum/common"
)

// OnChainDelivery mirrors the tuple returned by the contract's getDelivery
// view. Field order matches the ABI outputs.
type OnChainDelivery struct {
	Provider        common.Address
	Deliverer       common.Address
	Customer        common.Address
	MinTemp         *big.Int
	MaxTemp         *big.Int
	MinHumidity     *big.Int
	MaxHumidity     *big.Int
	DeliveryPrice   *big.Int
	ProductPrice    *big.Int
	EndTime         *big.Int
	PaymentReleased bool
	IsDraft         bool
}

// IsZero reports whether the contract returned the uninitialized sentinel
// record, meaning the delivery does not exist on-chain and the local row
// caching it is stale.
func (d OnChainDelivery) IsZero() bool {
	return d.Provider == (common.Address{}) && d.Deliverer == (common.Address{})
}

// Status derives the delivery status from the on-chain flags. Precedence is
// fixed: the draft flag wins over the payment-released flag.
func (d OnChainDelivery) Status() models.DeliveryStatus {
	if d.IsDraft {
		return models.DeliveryStatusDraft
	}
	if d.PaymentReleased {
		return models.DeliveryStatusAccepted
	}
	return models.DeliveryStatusRejected
}
