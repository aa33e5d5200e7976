package api

import (
	"github.com/coldchain-lab/smartdelivery/internal/orchestrator"
	"github.com/gofiber/fiber/v2"
)

type RecordSensorDataRequest struct {
	DeliveryID  string  `json:"deliveryId"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   int64   `json:"timestamp"`
}

type SimulateDeliveryRequest struct {
	DeliveryID string `json:"deliveryId"`
	EndTime    int64  `json:"endTime"`
}

func (s *APIServer) handleRecordSensorData(c *fiber.Ctx) error {
	var req RecordSensorDataRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	err := s.orchestrator.RecordSensorReading(c.Context(), orchestrator.RecordSensorReadingArgs{
		DeliveryID:  req.DeliveryID,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sensor data recorded"})
}

func (s *APIServer) handleSimulateDelivery(c *fiber.Ctx) error {
	var req SimulateDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.orchestrator.SimulateDelivery(c.Context(), req.DeliveryID, req.EndTime); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Delivery simulation completed"})
}

func (s *APIServer) handleGetSensorData(c *fiber.Ctx) error {
	deliveryID := c.Params("delivery_id")

	readings, err := s.orchestrator.GetSensorData(c.Context(), deliveryID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(readings)
}
