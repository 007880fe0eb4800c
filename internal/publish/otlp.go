package publish

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

// Supported OTLP transports.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

const (
	metricPrefix = "glean_migration."
	scopeName    = "github.com/fidde/glean_migration_tracker"
)

// OTLPConfig configures the gauge exporter.
type OTLPConfig struct {
	// Endpoint is host:port for gRPC, a base URL for HTTP
	Endpoint    string
	Protocol    string
	Insecure    bool
	Timeout     time.Duration
	ServiceName string

	// DialOptions are appended to the gRPC dial options.
	DialOptions []grpc.DialOption
}

// OTLP exports the counts of the newest record as OTLP gauges.
type OTLP struct {
	cfg    OTLPConfig
	conn   *grpc.ClientConn
	client colmetricspb.MetricsServiceClient
	http   *http.Client
	logger *slog.Logger
}

// NewOTLP creates the exporter. For gRPC the connection is established lazily.
func NewOTLP(cfg OTLPConfig, logger *slog.Logger) (*OTLP, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolGRPC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "glean-migration-tracker"
	}

	o := &OTLP{cfg: cfg, logger: logger}

	switch cfg.Protocol {
	case ProtocolGRPC:
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		if cfg.Insecure {
			creds = insecure.NewCredentials()
		}
		opts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, cfg.DialOptions...)

		conn, err := grpc.NewClient(cfg.Endpoint, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP client: %w", err)
		}
		o.conn = conn
		o.client = colmetricspb.NewMetricsServiceClient(conn)

	case ProtocolHTTP:
		o.http = &http.Client{Timeout: cfg.Timeout}

	default:
		return nil, fmt.Errorf("unknown OTLP protocol: %s (supported: grpc, http/protobuf)", cfg.Protocol)
	}

	return o, nil
}

// Publish exports the last record of the log when the run added records.
func (o *OTLP) Publish(ctx context.Context, buildIDs []string, records []*models.MigrationRecord) error {
	if len(buildIDs) == 0 || len(records) == 0 {
		return nil
	}

	latest := records[len(records)-1]
	req := BuildRequest(latest, o.cfg.ServiceName)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	var err error
	if o.client != nil {
		err = o.exportGRPC(ctx, req)
	} else {
		err = o.exportHTTP(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("exporting OTLP metrics: %w", err)
	}

	o.logger.Debug("OTLP gauges exported", "build_id", latest.BuildID, "endpoint", o.cfg.Endpoint)
	return nil
}

func (o *OTLP) exportGRPC(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error {
	resp, err := o.client.Export(ctx, req)
	if err != nil {
		return err
	}
	if ps := resp.GetPartialSuccess(); ps != nil && ps.GetRejectedDataPoints() > 0 {
		o.logger.Warn("OTLP endpoint rejected data points",
			"rejected", ps.GetRejectedDataPoints(),
			"message", ps.GetErrorMessage(),
		)
	}
	return nil
}

func (o *OTLP) exportHTTP(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error {
	body, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(o.cfg.Endpoint, "/") + "/v1/metrics"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Close releases the gRPC connection.
func (o *OTLP) Close() error {
	if o.conn != nil {
		return o.conn.Close()
	}
	return nil
}

// BuildRequest converts a record into one gauge per count, stamped with the
// build time and labelled with the build id.
func BuildRequest(record *models.MigrationRecord, serviceName string) *colmetricspb.ExportMetricsServiceRequest {
	ts := time.Now()
	if t, err := (models.Release{BuildID: record.BuildID}).BuildTime(); err == nil {
		ts = t
	}

	attrs := []*commonpb.KeyValue{stringAttr("build_id", record.BuildID)}

	counts := record.Data.Counts()
	metrics := make([]*metricspb.Metric, 0, len(counts))
	for _, c := range counts {
		metrics = append(metrics, &metricspb.Metric{
			Name: metricPrefix + snakeCase(c.Name),
			Unit: "{probe}",
			Data: &metricspb.Metric_Gauge{
				Gauge: &metricspb.Gauge{
					DataPoints: []*metricspb.NumberDataPoint{{
						Attributes:   attrs,
						TimeUnixNano: uint64(ts.UnixNano()),
						Value:        &metricspb.NumberDataPoint_AsInt{AsInt: int64(c.Value)},
					}},
				},
			},
		})
	}

	return &colmetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{stringAttr("service.name", serviceName)},
			},
			ScopeMetrics: []*metricspb.ScopeMetrics{{
				Scope:   &commonpb.InstrumentationScope{Name: scopeName},
				Metrics: metrics,
			}},
		}},
	}
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

// snakeCase turns legacyOnlyEvents into legacy_only_events.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
