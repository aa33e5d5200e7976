package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coldchain-lab/smartdelivery/internal/chain"
	"github.com/coldchain-lab/smartdelivery/internal/models"
	"github.com/coldchain-lab/smartdelivery/internal/orchestrator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	initErr     error
	completeErr error
	simulateErr error
	recordErr   error
	summaries   []orchestrator.DeliverySummary
	listErr     error
	readings    []orchestrator.SensorReadingView
}

func (f *fakeOrchestrator) InitializeDelivery(ctx context.Context, args orchestrator.InitializeDeliveryArgs) (*chain.Receipt, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &chain.Receipt{TxHash: common.HexToHash("0xabc"), BlockNumber: 1}, nil
}

func (f *fakeOrchestrator) RecordSensorReading(ctx context.Context, args orchestrator.RecordSensorReadingArgs) error {
	return f.recordErr
}

func (f *fakeOrchestrator) SimulateDelivery(ctx context.Context, deliveryID string, endTime int64) error {
	return f.simulateErr
}

func (f *fakeOrchestrator) CompleteDelivery(ctx context.Context, args orchestrator.CompleteDeliveryArgs) error {
	return f.completeErr
}

func (f *fakeOrchestrator) ListDeliveries(ctx context.Context) ([]orchestrator.DeliverySummary, error) {
	return f.summaries, f.listErr
}

func (f *fakeOrchestrator) ListActiveDeliveries(ctx context.Context) ([]orchestrator.DeliverySummary, error) {
	return f.summaries, f.listErr
}

func (f *fakeOrchestrator) GetSensorData(ctx context.Context, deliveryID string) ([]orchestrator.SensorReadingView, error) {
	return f.readings, nil
}

func postJSON(t *testing.T, server *APIServer, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, server *APIServer, path string, out any) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp
}

func TestInitializeDeliveryEndpoint(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{})

		resp := postJSON(t, server, "/initializeDelivery", InitializeDeliveryRequest{
			DeliveryID: "D1", MinTemp: 1, MaxTemp: 4, MinHumidity: 60, MaxHumidity: 80,
			ProductPrice: 10, DeliveryPrice: 2,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Delivery started", body["message"])
		assert.NotEmpty(t, body["transaction_hash"])
	})

	t.Run("InvalidInput", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{
			initErr: fmt.Errorf("%w: min above max", orchestrator.ErrInvalidInput),
		})

		resp := postJSON(t, server, "/initializeDelivery", InitializeDeliveryRequest{DeliveryID: "D1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ConfirmationTimeout", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{initErr: chain.ErrConfirmationTimeout})

		resp := postJSON(t, server, "/initializeDelivery", InitializeDeliveryRequest{DeliveryID: "D1"})
		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	})

	t.Run("SubmissionFailure", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{initErr: chain.ErrSubmissionFailed})

		resp := postJSON(t, server, "/initializeDelivery", InitializeDeliveryRequest{DeliveryID: "D1"})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestCompleteDeliveryEndpoint(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{})

		resp := postJSON(t, server, "/completeDelivery", CompleteDeliveryRequest{
			DeliveryID: "D1", EndTime: 1700000000, AvgTemp: 3, AvgHumidity: 70,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ReconciliationGap", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{completeErr: orchestrator.ErrReconciliationGap})

		resp := postJSON(t, server, "/completeDelivery", CompleteDeliveryRequest{
			DeliveryID: "D1", EndTime: 1700000000,
		})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "pending", body["status"])
	})

	t.Run("NotFound", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{completeErr: orchestrator.ErrDeliveryNotFound})

		resp := postJSON(t, server, "/completeDelivery", CompleteDeliveryRequest{
			DeliveryID: "missing", EndTime: 1700000000,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSensorEndpoints(t *testing.T) {
	t.Run("RecordCreated", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{})

		resp := postJSON(t, server, "/recordSensorData", RecordSensorDataRequest{
			DeliveryID: "D1", Temperature: 3.2, Humidity: 71,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("SimulateOK", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{})

		resp := postJSON(t, server, "/simulateDelivery", SimulateDeliveryRequest{
			DeliveryID: "D1", EndTime: 1700000000,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Delivery simulation completed", body["message"])
	})

	t.Run("GetSensorData", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{readings: []orchestrator.SensorReadingView{
			{Temperature: 2.5, Humidity: 61, Time: "time1"},
		}})

		var readings []orchestrator.SensorReadingView
		resp := getJSON(t, server, "/getSensorData/D1", &readings)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, readings, 1)
		assert.Equal(t, "time1", readings[0].Time)
	})
}

func TestListEndpoints(t *testing.T) {
	summaries := []orchestrator.DeliverySummary{{
		DeliveryID: "D1",
		Status:     models.DeliveryStatusAccepted,
		MinTemp:    1, MaxTemp: 4,
		AvgTemp: 3, AvgHumidity: 70,
	}}

	t.Run("GetDeliveries", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{summaries: summaries})

		var results []orchestrator.DeliverySummary
		resp := getJSON(t, server, "/getDeliveries", &results)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, results, 1)
		assert.Equal(t, "D1", results[0].DeliveryID)
	})

	t.Run("GetActiveDeliveries", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{summaries: summaries})

		resp := getJSON(t, server, "/getActiveDeliveries", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Health", func(t *testing.T) {
		server := NewAPIServer(&fakeOrchestrator{})

		var body map[string]string
		resp := getJSON(t, server, "/health", &body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})
}
