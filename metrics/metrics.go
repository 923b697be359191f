// Package metrics wraps AWS CloudWatch metric emission, adapted from the
// teacher's pkg/aws MetricsClient. It is a no-op unless CLOUDWATCH_ENABLED
// is set, so the gateway runs without AWS credentials in dev/test.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Client wraps AWS CloudWatch PutMetricData calls.
type Client struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
}

// New loads the default AWS config and returns a Client. enabled gates every
// call to a no-op, matching the teacher's IsEnabled() short-circuit.
func New(ctx context.Context, namespace string, enabled bool) (*Client, error) {
	if !enabled {
		return &Client{enabled: false, namespace: namespace}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: load aws config: %w", err)
	}
	return &Client{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   true,
	}, nil
}

// IsEnabled reports whether metrics are actually being shipped.
func (c *Client) IsEnabled() bool { return c.enabled }

func (c *Client) putMetric(ctx context.Context, name string, value float64, unit types.StandardUnit, dims map[string]string) error {
	if !c.enabled {
		return nil
	}
	dimensions := make([]types.Dimension, 0, len(dims))
	for k, v := range dims {
		dimensions = append(dimensions, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})
	return err
}

// RecordCount increments a counter metric.
func (c *Client) RecordCount(ctx context.Context, name string, dims map[string]string) error {
	return c.putMetric(ctx, name, 1, types.StandardUnitCount, dims)
}

// RecordLatency records a duration in milliseconds.
func (c *Client) RecordLatency(ctx context.Context, name string, d time.Duration, dims map[string]string) error {
	return c.putMetric(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dims)
}

// RecordValue records a dimensionless value.
func (c *Client) RecordValue(ctx context.Context, name string, value float64, dims map[string]string) error {
	return c.putMetric(ctx, name, value, types.StandardUnitNone, dims)
}

// Metric names emitted by the gateway's HTTP layer and delivery engine.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricPaymentsProcessed    = "PaymentsProcessed"
	MetricPaymentsSucceeded    = "PaymentsSucceeded"
	MetricPaymentsFailed       = "PaymentsFailed"
	MetricRefundsProcessed     = "RefundsProcessed"
	MetricWebhookAttempts      = "WebhookDeliveryAttempts"
	MetricWebhookDelivered     = "WebhookDeliverySucceeded"
	MetricWebhookFailed        = "WebhookDeliveryFailed"
	MetricWebhookExhausted     = "WebhookRetriesExhausted"
	MetricIdempotentReplays    = "IdempotentReplays"
	MetricOutboxEventsInserted = "OutboxEventsInserted"
)
