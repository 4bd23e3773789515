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

// Metrics exposes business instruments pushed over OTLP.
type Metrics struct {
	checkIns       metric.Int64Counter
	checkouts      metric.Int64Counter
	paymentsAmount metric.Int64Counter
	invoiceAmount  metric.Int64Histogram
	nightsBilled   metric.Int64Histogram
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the front-desk instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "frontdesk"
	}
	meter := provider.Meter(name)

	checkIns, err := meter.Int64Counter("frontdesk_check_ins_total")
	if err != nil {
		return nil, err
	}
	checkouts, err := meter.Int64Counter("frontdesk_checkouts_total")
	if err != nil {
		return nil, err
	}
	paymentsAmount, err := meter.Int64Counter("frontdesk_payments_amount_minor_total",
		metric.WithDescription("Sum of recorded payments in minor currency units."))
	if err != nil {
		return nil, err
	}
	invoiceAmount, err := meter.Int64Histogram("frontdesk_invoice_amount_minor")
	if err != nil {
		return nil, err
	}
	nightsBilled, err := meter.Int64Histogram("frontdesk_nights_billed")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		checkIns:       checkIns,
		checkouts:      checkouts,
		paymentsAmount: paymentsAmount,
		invoiceAmount:  invoiceAmount,
		nightsBilled:   nightsBilled,
	}, nil
}

// RecordCheckIn counts a new stay; source is "walk_in" or "reservation".
func (m *Metrics) RecordCheckIn(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.checkIns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckout counts a finalized stay along with its invoice total.
func (m *Metrics) RecordCheckout(ctx context.Context, documentType string, nights int, total int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("document_type", strings.TrimSpace(documentType)))...)
	m.checkouts.Add(ctx, 1, attrs)
	m.invoiceAmount.Record(ctx, total, attrs)
	m.nightsBilled.Record(ctx, int64(nights))
}

func (m *Metrics) RecordPayment(ctx context.Context, method, direction string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.TrimSpace(method)),
		attribute.String("direction", strings.TrimSpace(direction)),
	)
	m.paymentsAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"source":        {},
	"method":        {},
	"direction":     {},
	"document_type": {},
	"status_code":   {},
	"route":         {},
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
