package models

// SensorSample is a single temperature/humidity reading for a delivery.
// Samples are append-only; they are removed only when their parent
// Delivery row is deleted (hidden deliveries keep their history).
type SensorSample struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	DeliveryID  string  `gorm:"not null;index" json:"deliveryId"`
	Temperature float64 `gorm:"not null" json:"temperature"`
	Humidity    float64 `gorm:"not null" json:"humidity"`
	Timestamp   int64   `gorm:"not null" json:"timestamp"`
}
