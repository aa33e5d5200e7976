package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed SmartDelivery.json
var smartDeliveryJSON []byte

// Contract function and event names on the SmartDelivery settlement contract.
const (
	FnStartDelivery      = "startDelivery"
	FnCompleteDelivery   = "completeDelivery"
	FnClearOldDeliveries = "clearOldDeliveries"
	FnGetDelivery        = "getDelivery"

	EventPaymentReleased = "PaymentReleased"
	EventPaymentRefunded = "PaymentRefunded"
	EventDeliveryCleared = "DeliveryCleared"
)

// ContractArtifact represents a compiled contract artifact
type ContractArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
}

// GetSmartDeliveryArtifact returns the SmartDelivery contract artifact
func GetSmartDeliveryArtifact() (*ContractArtifact, error) {
	var artifact ContractArtifact
	if err := json.Unmarshal(smartDeliveryJSON, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal SmartDelivery artifact: %w", err)
	}
	return &artifact, nil
}

// SmartDeliveryABI parses and returns the SmartDelivery contract ABI.
func SmartDeliveryABI() (abi.ABI, error) {
	artifact, err := GetSmartDeliveryArtifact()
	if err != nil {
		return abi.ABI{}, err
	}
	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse SmartDelivery ABI: %w", err)
	}
	return parsed, nil
}
