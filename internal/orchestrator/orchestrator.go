package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/coldchain-lab/smartdelivery/internal/chain"
	"github.com/coldchain-lab/smartdelivery/internal/contracts"
	"github.com/coldchain-lab/smartdelivery/internal/models"
	"github.com/coldchain-lab/smartdelivery/internal/services"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// simulatedSampleCount is the number of synthetic readings generated per
// simulated delivery.
const simulatedSampleCount = 6

// Config carries the orchestrator's slice of the process configuration.
type Config struct {
	ContractAddress    string
	ProviderAddress    string
	DelivererAddress   string
	CustomerPrivateKey string

	// Simulated sensor ranges.
	MinTemp     float64
	MaxTemp     float64
	MinHumidity float64
	MaxHumidity float64
}

// InitializeDeliveryArgs are the inputs to start a delivery on-chain.
type InitializeDeliveryArgs struct {
	DeliveryID    string  `validate:"required"`
	MinTemp       float64 `validate:"ltefield=MaxTemp"`
	MaxTemp       float64
	MinHumidity   float64 `validate:"ltefield=MaxHumidity"`
	MaxHumidity   float64
	ProductPrice  float64 `validate:"gte=0"`
	DeliveryPrice float64 `validate:"gte=0"`
}

// RecordSensorReadingArgs are the inputs for a single sensor ingestion.
type RecordSensorReadingArgs struct {
	DeliveryID  string `validate:"required"`
	Temperature float64
	Humidity    float64
	Timestamp   int64
}

// CompleteDeliveryArgs are the inputs to settle a delivery with
// caller-supplied aggregates.
type CompleteDeliveryArgs struct {
	DeliveryID  string `validate:"required"`
	EndTime     int64  `validate:"required"`
	AvgTemp     float64
	AvgHumidity float64
}

// DeliverySummary merges on-chain delivery state with locally cached
// sensor aggregates.
type DeliverySummary struct {
	DeliveryID      string                `json:"deliveryId"`
	Provider        string                `json:"provider"`
	Deliverer       string                `json:"deliverer"`
	Customer        string                `json:"customer"`
	MinTemp         float64               `json:"minTemp"`
	MaxTemp         float64               `json:"maxTemp"`
	MinHumidity     float64               `json:"minHumidity"`
	MaxHumidity     float64               `json:"maxHumidity"`
	DeliveryPrice   float64               `json:"deliveryPrice"`
	ProductPrice    float64               `json:"productPrice"`
	EndTime         uint64                `json:"endTime"`
	PaymentReleased bool                  `json:"paymentReleased"`
	Status          models.DeliveryStatus `json:"status"`
	AvgTemp         float64               `json:"avgTemp"`
	AvgHumidity     float64               `json:"avgHumidity"`
}

// SensorReadingView is a single sample in the shape the API returns.
type SensorReadingView struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Time        string  `json:"time"`
}

// Orchestrator drives the delivery state machine: it submits and confirms
// contract transactions, keeps the local registry and telemetry store in
// step, and reconciles local state against chain truth on every read.
type Orchestrator interface {
	InitializeDelivery(ctx context.Context, args InitializeDeliveryArgs) (*chain.Receipt, error)
	RecordSensorReading(ctx context.Context, args RecordSensorReadingArgs) error
	SimulateDelivery(ctx context.Context, deliveryID string, endTime int64) error
	CompleteDelivery(ctx context.Context, args CompleteDeliveryArgs) error
	ListDeliveries(ctx context.Context) ([]DeliverySummary, error)
	ListActiveDeliveries(ctx context.Context) ([]DeliverySummary, error)
	GetSensorData(ctx context.Context, deliveryID string) ([]SensorReadingView, error)
}

type orchestrator struct {
	gateway    chain.Gateway
	deliveries services.DeliveryService
	telemetry  services.TelemetryService
	cfg        Config
	validator  *validator.Validate
	locks      *keyedMutex
	log        *zap.Logger
}

// New creates an Orchestrator.
func New(gateway chain.Gateway, deliveries services.DeliveryService, telemetry services.TelemetryService, cfg Config, log *zap.Logger) Orchestrator {
	return &orchestrator{
		gateway:    gateway,
		deliveries: deliveries,
		telemetry:  telemetry,
		cfg:        cfg,
		validator:  validator.New(),
		locks:      newKeyedMutex(),
		log:        log,
	}
}

// InitializeDelivery submits a startDelivery transaction and, only after it
// confirms, persists the local registry row. A failed or timed-out
// submission leaves no local state behind.
func (o *orchestrator) InitializeDelivery(ctx context.Context, args InitializeDeliveryArgs) (*chain.Receipt, error) {
	if err := o.validator.Struct(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock := o.locks.Lock(args.DeliveryID)
	defer unlock()

	productPrice := roundPrice(args.ProductPrice)
	deliveryPrice := roundPrice(args.DeliveryPrice)
	value := new(big.Int).Add(etherToWei(productPrice), etherToWei(deliveryPrice))

	call := chain.FunctionCall{
		Name: contracts.FnStartDelivery,
		Args: []any{
			common.HexToAddress(o.cfg.ProviderAddress),
			common.HexToAddress(o.cfg.DelivererAddress),
			toCenti(args.MinTemp),
			toCenti(args.MaxTemp),
			toCenti(args.MinHumidity),
			toCenti(args.MaxHumidity),
			etherToWei(productPrice),
			etherToWei(deliveryPrice),
			args.DeliveryID,
		},
	}

	receipt, err := o.gateway.SubmitTransaction(ctx, call, o.cfg.CustomerPrivateKey, value)
	if err != nil {
		return nil, err
	}

	delivery := &models.Delivery{
		DeliveryID:      args.DeliveryID,
		Status:          models.DeliveryStatusActive,
		MinTemp:         args.MinTemp,
		MaxTemp:         args.MaxTemp,
		MinHumidity:     args.MinHumidity,
		MaxHumidity:     args.MaxHumidity,
		ProductPrice:    productPrice,
		DeliveryPrice:   deliveryPrice,
		ContractAddress: o.cfg.ContractAddress,
	}
	if err := o.deliveries.CreateDelivery(delivery); err != nil {
		// The transaction already confirmed; the row will be rebuilt by
		// read-repair if the caller retries the listing.
		o.log.Error("delivery confirmed on-chain but local insert failed",
			zap.String("delivery_id", args.DeliveryID),
			zap.String("tx_hash", receipt.TxHash.Hex()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	o.log.Info("delivery initialized",
		zap.String("delivery_id", args.DeliveryID),
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber))
	return receipt, nil
}

// RecordSensorReading appends a sample. Purely local; no chain interaction.
func (o *orchestrator) RecordSensorReading(ctx context.Context, args RecordSensorReadingArgs) error {
	if err := o.validator.Struct(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := o.deliveries.GetDelivery(args.DeliveryID); err != nil {
		if errors.Is(err, services.ErrDeliveryNotFound) {
			return ErrDeliveryNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	timestamp := args.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	sample := &models.SensorSample{
		DeliveryID:  args.DeliveryID,
		Temperature: args.Temperature,
		Humidity:    args.Humidity,
		Timestamp:   timestamp,
	}
	if err := o.telemetry.AppendSample(sample); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}

// SimulateDelivery generates synthetic sensor readings, persists them, and
// settles the delivery with their arithmetic means.
func (o *orchestrator) SimulateDelivery(ctx context.Context, deliveryID string, endTime int64) error {
	if deliveryID == "" {
		return fmt.Errorf("%w: deliveryId is required", ErrInvalidInput)
	}

	unlock := o.locks.Lock(deliveryID)
	defer unlock()

	var avgTemp, avgHumidity float64
	for i := 0; i < simulatedSampleCount; i++ {
		temp := o.cfg.MinTemp + rand.Float64()*(o.cfg.MaxTemp-o.cfg.MinTemp)
		humidity := o.cfg.MinHumidity + rand.Float64()*(o.cfg.MaxHumidity-o.cfg.MinHumidity)
		avgTemp += temp / simulatedSampleCount
		avgHumidity += humidity / simulatedSampleCount

		sample := &models.SensorSample{
			DeliveryID:  deliveryID,
			Temperature: temp,
			Humidity:    humidity,
			Timestamp:   time.Now().Unix(),
		}
		if err := o.telemetry.AppendSample(sample); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
	}

	return o.settle(ctx, deliveryID, endTime, avgTemp, avgHumidity)
}

// CompleteDelivery settles a delivery with caller-supplied aggregates.
func (o *orchestrator) CompleteDelivery(ctx context.Context, args CompleteDeliveryArgs) error {
	if err := o.validator.Struct(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	unlock := o.locks.Lock(args.DeliveryID)
	defer unlock()

	return o.settle(ctx, args.DeliveryID, args.EndTime, args.AvgTemp, args.AvgHumidity)
}

// settle submits the completion transaction and reconciles the local status
// against the contract's settlement events. Callers hold the per-delivery
// lock.
func (o *orchestrator) settle(ctx context.Context, deliveryID string, endTime int64, avgTemp, avgHumidity float64) error {
	if _, err := o.deliveries.GetDelivery(deliveryID); err != nil {
		if errors.Is(err, services.ErrDeliveryNotFound) {
			return ErrDeliveryNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	call := chain.FunctionCall{
		Name: contracts.FnCompleteDelivery,
		Args: []any{
			deliveryID,
			new(big.Int).SetInt64(endTime),
			toCenti(avgTemp),
			toCenti(avgHumidity),
		},
	}

	receipt, err := o.gateway.SubmitTransaction(ctx, call, o.cfg.CustomerPrivateKey, nil)
	if err != nil {
		return err
	}

	status, err := o.resolveSettlement(ctx, deliveryID, receipt.BlockNumber)
	if err != nil {
		return err
	}

	if err := o.deliveries.UpdateStatus(deliveryID, status); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	o.log.Info("delivery settled",
		zap.String("delivery_id", deliveryID),
		zap.String("status", string(status)),
		zap.String("tx_hash", receipt.TxHash.Hex()))
	return nil
}

// resolveSettlement inspects the event log from the confirming block onward
// for the delivery's payment outcome. Both queries are executed; finding
// neither event is a reconciliation gap, not a success.
func (o *orchestrator) resolveSettlement(ctx context.Context, deliveryID string, fromBlock uint64) (models.DeliveryStatus, error) {
	released, err := o.gateway.QueryEvents(ctx, contracts.EventPaymentReleased, fromBlock, deliveryID)
	if err != nil {
		return "", fmt.Errorf("failed to query payment-released events: %w", err)
	}
	if len(released) > 0 {
		return models.DeliveryStatusAccepted, nil
	}

	refunded, err := o.gateway.QueryEvents(ctx, contracts.EventPaymentRefunded, fromBlock, deliveryID)
	if err != nil {
		return "", fmt.Errorf("failed to query payment-refunded events: %w", err)
	}
	if len(refunded) > 0 {
		return models.DeliveryStatusRejected, nil
	}

	return "", fmt.Errorf("%w: delivery %s, from block %d", ErrReconciliationGap, deliveryID, fromBlock)
}

// ListDeliveries returns every visible delivery with its status derived
// from chain truth and its locally computed sensor aggregates. Local rows
// whose on-chain record is the zero sentinel are purged (read-repair).
func (o *orchestrator) ListDeliveries(ctx context.Context) ([]DeliverySummary, error) {
	rows, err := o.deliveries.ListVisibleByContract(o.cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	results := make([]DeliverySummary, 0, len(rows))
	for _, row := range rows {
		var onchain chain.OnChainDelivery
		if err := o.gateway.CallRead(ctx, chain.FunctionCall{
			Name: contracts.FnGetDelivery,
			Args: []any{row.DeliveryID},
		}, &onchain); err != nil {
			return nil, err
		}

		if onchain.IsZero() {
			o.log.Info("purging stale delivery with no on-chain record",
				zap.String("delivery_id", row.DeliveryID))
			if err := o.deliveries.DeleteDelivery(row.DeliveryID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
			}
			continue
		}

		avgTemp, avgHumidity, err := o.telemetry.Averages(row.DeliveryID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}

		results = append(results, o.summarize(row.DeliveryID, onchain, avgTemp, avgHumidity))
	}
	return results, nil
}

// ListActiveDeliveries filters locally on active status first to avoid the
// per-row chain read for settled deliveries, then confirms the draft flag
// on-chain.
func (o *orchestrator) ListActiveDeliveries(ctx context.Context) ([]DeliverySummary, error) {
	rows, err := o.deliveries.ListByStatusAndContract(models.DeliveryStatusActive, o.cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	results := make([]DeliverySummary, 0, len(rows))
	for _, row := range rows {
		var onchain chain.OnChainDelivery
		if err := o.gateway.CallRead(ctx, chain.FunctionCall{
			Name: contracts.FnGetDelivery,
			Args: []any{row.DeliveryID},
		}, &onchain); err != nil {
			return nil, err
		}
		if !onchain.IsDraft {
			continue
		}

		summary := o.summarize(row.DeliveryID, onchain, 0, 0)
		summary.Status = models.DeliveryStatusActive
		results = append(results, summary)
	}
	return results, nil
}

// GetSensorData returns the full sample history for a delivery, hidden or
// not.
func (o *orchestrator) GetSensorData(ctx context.Context, deliveryID string) ([]SensorReadingView, error) {
	samples, err := o.telemetry.ListSamples(deliveryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	views := make([]SensorReadingView, 0, len(samples))
	for i, sample := range samples {
		views = append(views, SensorReadingView{
			Temperature: sample.Temperature,
			Humidity:    sample.Humidity,
			Time:        fmt.Sprintf("time%d", i+1),
		})
	}
	return views, nil
}

func (o *orchestrator) summarize(deliveryID string, onchain chain.OnChainDelivery, avgTemp, avgHumidity float64) DeliverySummary {
	var endTime uint64
	if onchain.EndTime != nil {
		endTime = onchain.EndTime.Uint64()
	}
	return DeliverySummary{
		DeliveryID:      deliveryID,
		Provider:        onchain.Provider.Hex(),
		Deliverer:       onchain.Deliverer.Hex(),
		Customer:        onchain.Customer.Hex(),
		MinTemp:         fromCenti(onchain.MinTemp),
		MaxTemp:         fromCenti(onchain.MaxTemp),
		MinHumidity:     fromCenti(onchain.MinHumidity),
		MaxHumidity:     fromCenti(onchain.MaxHumidity),
		DeliveryPrice:   weiToEther(onchain.DeliveryPrice),
		ProductPrice:    weiToEther(onchain.ProductPrice),
		EndTime:         endTime,
		PaymentReleased: onchain.PaymentReleased,
		Status:          onchain.Status(),
		AvgTemp:         avgTemp,
		AvgHumidity:     avgHumidity,
	}
}
