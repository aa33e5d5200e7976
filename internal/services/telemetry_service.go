package services

import (
	"github.com/coldchain-lab/smartdelivery/internal/models"
	"gorm.io/gorm"
)

// TelemetryService is the append-only store of sensor samples and their
// per-delivery aggregates.
type TelemetryService interface {
	AppendSample(sample *models.SensorSample) error
	ListSamples(deliveryID string) ([]models.SensorSample, error)
	// Averages returns the mean temperature and humidity over all samples
	// for the delivery, or zeros when none exist.
	Averages(deliveryID string) (avgTemp float64, avgHumidity float64, err error)
}

type telemetryService struct {
	db *gorm.DB
}

// NewTelemetryService creates a new TelemetryService
func NewTelemetryService(db *gorm.DB) TelemetryService {
	return &telemetryService{db: db}
}

func (s *telemetryService) AppendSample(sample *models.SensorSample) error {
	return s.db.Create(sample).Error
}

func (s *telemetryService) ListSamples(deliveryID string) ([]models.SensorSample, error) {
	var samples []models.SensorSample
	err := s.db.
		Where("delivery_id = ?", deliveryID).
		Order("id asc").
		Find(&samples).Error
	return samples, err
}

func (s *telemetryService) Averages(deliveryID string) (float64, float64, error) {
	var result struct {
		AvgTemp     *float64
		AvgHumidity *float64
	}
	err := s.db.Model(&models.SensorSample{}).
		Select("AVG(temperature) as avg_temp, AVG(humidity) as avg_humidity").
		Where("delivery_id = ?", deliveryID).
		Scan(&result).Error
	if err != nil {
		return 0, 0, err
	}

	var avgTemp, avgHumidity float64
	if result.AvgTemp != nil {
		avgTemp = *result.AvgTemp
	}
	if result.AvgHumidity != nil {
		avgHumidity = *result.AvgHumidity
	}
	return avgTemp, avgHumidity, nil
}
