package models

import "time"

type DeliveryStatus string

const (
	DeliveryStatusActive   DeliveryStatus = "active"
	DeliveryStatusAccepted DeliveryStatus = "accepted"
	DeliveryStatusRejected DeliveryStatus = "rejected"
	// DeliveryStatusDraft is never stored locally; it is derived from the
	// on-chain draft flag when listing deliveries.
	DeliveryStatusDraft DeliveryStatus = "draft"
)

// Delivery is the local projection of an on-chain delivery. The stored
// status is a cache and may lag chain truth; read paths reconcile it.
type Delivery struct {
	DeliveryID      string         `gorm:"primaryKey" json:"deliveryId"`
	Status          DeliveryStatus `gorm:"not null" json:"status"`
	MinTemp         float64        `json:"min_temp"`
	MaxTemp         float64        `json:"max_temp"`
	MinHumidity     float64        `json:"min_humidity"`
	MaxHumidity     float64        `json:"max_humidity"`
	ProductPrice    float64        `json:"product_price"`
	DeliveryPrice   float64        `json:"delivery_price"`
	IsHidden        bool           `gorm:"default:false;index" json:"is_hidden"`
	ContractAddress string         `gorm:"index" json:"contract_address"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	SensorData []SensorSample `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE" json:"sensor_data,omitempty"`
}
