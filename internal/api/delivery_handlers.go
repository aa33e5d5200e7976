package api

import (
	"errors"

	"github.com/coldchain-lab/smartdelivery/internal/chain"
	"github.com/coldchain-lab/smartdelivery/internal/orchestrator"
	"github.com/gofiber/fiber/v2"
)

type InitializeDeliveryRequest struct {
	DeliveryID    string  `json:"deliveryId"`
	MinTemp       float64 `json:"minTemp"`
	MaxTemp       float64 `json:"maxTemp"`
	MinHumidity   float64 `json:"minHumidity"`
	MaxHumidity   float64 `json:"maxHumidity"`
	ProductPrice  float64 `json:"productPrice"`
	DeliveryPrice float64 `json:"deliveryPrice"`
}

type CompleteDeliveryRequest struct {
	DeliveryID  string  `json:"deliveryId"`
	EndTime     int64   `json:"endTime"`
	AvgTemp     float64 `json:"avgTemp"`
	AvgHumidity float64 `json:"avgHumidity"`
}

// errorResponse maps orchestrator and chain errors to HTTP statuses. A
// confirmation timeout is surfaced distinctly from an outright failure
// because the transaction may still land later.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrDeliveryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, chain.ErrConfirmationTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": "transaction confirmation timed out; it may still be mined",
		})
	case errors.Is(err, orchestrator.ErrReconciliationGap):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":  err.Error(),
			"status": "pending",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// handleInitializeDelivery starts a delivery on-chain and records it
// locally once the transaction confirms.
func (s *APIServer) handleInitializeDelivery(c *fiber.Ctx) error {
	var req InitializeDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	receipt, err := s.orchestrator.InitializeDelivery(c.Context(), orchestrator.InitializeDeliveryArgs{
		DeliveryID:    req.DeliveryID,
		MinTemp:       req.MinTemp,
		MaxTemp:       req.MaxTemp,
		MinHumidity:   req.MinHumidity,
		MaxHumidity:   req.MaxHumidity,
		ProductPrice:  req.ProductPrice,
		DeliveryPrice: req.DeliveryPrice,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":          "Delivery started",
		"transaction_hash": receipt.TxHash.Hex(),
	})
}

func (s *APIServer) handleCompleteDelivery(c *fiber.Ctx) error {
	var req CompleteDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	err := s.orchestrator.CompleteDelivery(c.Context(), orchestrator.CompleteDeliveryArgs{
		DeliveryID:  req.DeliveryID,
		EndTime:     req.EndTime,
		AvgTemp:     req.AvgTemp,
		AvgHumidity: req.AvgHumidity,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Delivery completed"})
}

func (s *APIServer) handleGetDeliveries(c *fiber.Ctx) error {
	deliveries, err := s.orchestrator.ListDeliveries(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(deliveries)
}

func (s *APIServer) handleGetActiveDeliveries(c *fiber.Ctx) error {
	deliveries, err := s.orchestrator.ListActiveDeliveries(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(deliveries)
}
