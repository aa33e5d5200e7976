package services

import (
	"errors"

	"github.com/coldchain-lab/smartdelivery/internal/models"
	"gorm.io/gorm"
)

// ErrDeliveryNotFound is returned when no delivery row matches the identifier.
var ErrDeliveryNotFound = errors.New("delivery not found")

// DeliveryService is the local registry of delivery records. Rows are a
// cached projection of on-chain state; the orchestrator reconciles them.
type DeliveryService interface {
	CreateDelivery(delivery *models.Delivery) error
	GetDelivery(deliveryID string) (*models.Delivery, error)
	ListVisibleByContract(contractAddress string) ([]models.Delivery, error)
	ListByStatusAndContract(status models.DeliveryStatus, contractAddress string) ([]models.Delivery, error)
	UpdateStatus(deliveryID string, status models.DeliveryStatus) error
	MarkHidden(deliveryID string) error
	DeleteDelivery(deliveryID string) error
	// PurgeForeignContract removes rows recorded under a different contract
	// address than the active one. Run at startup; a redeployed contract
	// invalidates every cached record.
	PurgeForeignContract(activeContractAddress string) (int64, error)
}

type deliveryService struct {
	db *gorm.DB
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(db *gorm.DB) DeliveryService {
	return &deliveryService{db: db}
}

func (s *deliveryService) CreateDelivery(delivery *models.Delivery) error {
	return s.db.Create(delivery).Error
}

func (s *deliveryService) GetDelivery(deliveryID string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.Where("delivery_id = ?", deliveryID).First(&delivery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ListVisibleByContract returns all non-hidden deliveries recorded under the
// given contract address.
func (s *deliveryService) ListVisibleByContract(contractAddress string) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.
		Where("is_hidden = ? AND contract_address = ?", false, contractAddress).
		Find(&deliveries).Error
	return deliveries, err
}

func (s *deliveryService) ListByStatusAndContract(status models.DeliveryStatus, contractAddress string) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.
		Where("status = ? AND contract_address = ?", status, contractAddress).
		Find(&deliveries).Error
	return deliveries, err
}

func (s *deliveryService) UpdateStatus(deliveryID string, status models.DeliveryStatus) error {
	return s.db.Model(&models.Delivery{}).
		Where("delivery_id = ?", deliveryID).
		Update("status", status).Error
}

// MarkHidden hides the delivery from listings. Sensor history is retained;
// only DeleteDelivery cascades to samples.
func (s *deliveryService) MarkHidden(deliveryID string) error {
	return s.db.Model(&models.Delivery{}).
		Where("delivery_id = ?", deliveryID).
		Update("is_hidden", true).Error
}

func (s *deliveryService) DeleteDelivery(deliveryID string) error {
	return s.db.Select("SensorData").
		Delete(&models.Delivery{DeliveryID: deliveryID}).Error
}

func (s *deliveryService) PurgeForeignContract(activeContractAddress string) (int64, error) {
	var stale []models.Delivery
	if err := s.db.Where("contract_address <> ?", activeContractAddress).Find(&stale).Error; err != nil {
		return 0, err
	}
	for _, delivery := range stale {
		if err := s.DeleteDelivery(delivery.DeliveryID); err != nil {
			return 0, err
		}
	}
	return int64(len(stale)), nil
}
