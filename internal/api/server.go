package api

import (
	"fmt"
	"log"
	"net"

	"github.com/coldchain-lab/smartdelivery/internal/orchestrator"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type APIServer struct {
	app          *fiber.App
	orchestrator orchestrator.Orchestrator
	port         int
}

func NewAPIServer(orch orchestrator.Orchestrator) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Add middleware
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	server := &APIServer{
		app:          app,
		orchestrator: orch,
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	s.app.Post("/initializeDelivery", s.handleInitializeDelivery)
	s.app.Post("/recordSensorData", s.handleRecordSensorData)
	s.app.Post("/completeDelivery", s.handleCompleteDelivery)
	s.app.Post("/simulateDelivery", s.handleSimulateDelivery)

	s.app.Get("/getDeliveries", s.handleGetDeliveries)
	s.app.Get("/getActiveDeliveries", s.handleGetActiveDeliveries)
	s.app.Get("/getSensorData/:delivery_id", s.handleGetSensorData)

	// Health check
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
}

// Start starts the server on the given port; port 0 picks a random
// available one.
func (s *APIServer) Start(port int) (int, error) {
	if port == 0 {
		listener, err := net.Listen("tcp", ":0")
		if err != nil {
			return 0, fmt.Errorf("failed to find available port: %w", err)
		}
		port = listener.Addr().(*net.TCPAddr).Port
		listener.Close()
	}
	s.port = port

	go func() {
		if err := s.app.Listen(fmt.Sprintf(":%d", port)); err != nil {
			log.Printf("Error starting API server: %v\n", err)
		}
	}()

	return port, nil
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *APIServer) GetPort() int {
	return s.port
}

// App exposes the underlying Fiber app for tests.
func (s *APIServer) App() *fiber.App {
	return s.app
}
