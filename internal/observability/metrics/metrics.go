package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	paymentsRecorded  metric.Int64Counter
	receiptsIssued    metric.Int64Counter
	carryForwards     metric.Int64Counter
	promotionsRun     metric.Int64Counter
	studentsPromoted  metric.Int64Counter
	studentsExcluded  metric.Int64Counter
	balanceComputed   metric.Int64Counter
	statementsBuilt   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shulekit"
	}
	meter := provider.Meter(name)

	paymentsRecorded, err := meter.Int64Counter("shulekit_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	receiptsIssued, err := meter.Int64Counter("shulekit_receipts_issued_total")
	if err != nil {
		return nil, err
	}
	carryForwards, err := meter.Int64Counter("shulekit_carry_forward_entries_total")
	if err != nil {
		return nil, err
	}
	promotionsRun, err := meter.Int64Counter("shulekit_promotion_runs_total")
	if err != nil {
		return nil, err
	}
	studentsPromoted, err := meter.Int64Counter("shulekit_students_promoted_total")
	if err != nil {
		return nil, err
	}
	studentsExcluded, err := meter.Int64Counter("shulekit_students_excluded_total")
	if err != nil {
		return nil, err
	}
	balanceComputed, err := meter.Int64Counter("shulekit_balance_computations_total")
	if err != nil {
		return nil, err
	}
	statementsBuilt, err := meter.Int64Counter("shulekit_statements_built_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		paymentsRecorded: paymentsRecorded,
		receiptsIssued:   receiptsIssued,
		carryForwards:    carryForwards,
		promotionsRun:    promotionsRun,
		studentsPromoted: studentsPromoted,
		studentsExcluded: studentsExcluded,
		balanceComputed:  balanceComputed,
		statementsBuilt:  statementsBuilt,
	}, nil
}

// RecordPayment increments payment counts by method.
func (m *Metrics) RecordPayment(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReceipt increments issued receipt counts.
func (m *Metrics) RecordReceipt(ctx context.Context) {
	if m == nil {
		return
	}
	m.receiptsIssued.Add(ctx, 1)
}

// RecordCarryForward increments carry-forward posting counts.
func (m *Metrics) RecordCarryForward(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("direction", strings.TrimSpace(direction)))
	m.carryForwards.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPromotionRun increments promotion batch counts by scope.
func (m *Metrics) RecordPromotionRun(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("scope", strings.TrimSpace(scope)))
	m.promotionsRun.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPromotionOutcome increments promoted and excluded student counts.
func (m *Metrics) RecordPromotionOutcome(ctx context.Context, promoted, excluded int) {
	if m == nil {
		return
	}
	if promoted > 0 {
		m.studentsPromoted.Add(ctx, int64(promoted))
	}
	if excluded > 0 {
		m.studentsExcluded.Add(ctx, int64(excluded))
	}
}

// RecordBalanceComputation increments balance computation counts.
func (m *Metrics) RecordBalanceComputation(ctx context.Context) {
	if m == nil {
		return
	}
	m.balanceComputed.Add(ctx, 1)
}

// RecordStatement increments statement build counts by output format.
func (m *Metrics) RecordStatement(ctx context.Context, format string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("format", strings.TrimSpace(format)))
	m.statementsBuilt.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"method":      {},
	"direction":   {},
	"scope":       {},
	"format":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
