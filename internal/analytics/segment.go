package analytics

import (
	"context"
	"strings"

	"github.com/happybase/portal/internal/config"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	segment "github.com/segmentio/analytics-go/v3"
	"go.uber.org/zap"
)

// SegmentSink delivers events through the Segment protocol, which the
// Customer.io CDP endpoint also speaks.
type SegmentSink struct {
	client     segment.Client
	hmacSecret string
	log        *zap.Logger
}

func NewSegmentSink(cfg config.AnalyticsConfig, log *zap.Logger) (*SegmentSink, error) {
	segCfg := segment.Config{
		Callback: callback{log: log},
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		segCfg.Endpoint = endpoint
	}
	client, err := segment.NewWithConfig(cfg.WriteKey, segCfg)
	if err != nil {
		return nil, err
	}
	return newSegmentSink(client, cfg.HMACSecret, log), nil
}

func newSegmentSink(client segment.Client, hmacSecret string, log *zap.Logger) *SegmentSink {
	return &SegmentSink{client: client, hmacSecret: hmacSecret, log: log.Named("analytics")}
}

func (s *SegmentSink) Identify(ctx context.Context, ev Identify) {
	traits := segment.NewTraits().
		SetEmail(ev.Email).
		SetFirstName(ev.FirstName).
		SetLastName(ev.LastName).
		SetName(strings.TrimSpace(ev.FirstName + " " + ev.LastName))
	if !ev.CreatedAt.IsZero() {
		traits.SetCreatedAt(ev.CreatedAt)
	}

	msg := segment.Identify{UserId: ev.UserID, Traits: traits}
	if hash := UserHash(s.hmacSecret, ev.UserID); hash != "" {
		msg.Integrations = segment.Integrations{
			"Intercom": map[string]interface{}{"user_hash": hash},
		}
	}
	s.enqueue(ctx, "identify", msg)
}

func (s *SegmentSink) Track(ctx context.Context, ev Track) {
	props := segment.NewProperties()
	for k, v := range ev.Properties {
		props.Set(k, v)
	}
	s.enqueue(ctx, ev.Event, segment.Track{
		UserId:     ev.UserID,
		Event:      ev.Event,
		Properties: props,
	})
}

func (s *SegmentSink) Close() error {
	return s.client.Close()
}

func (s *SegmentSink) enqueue(ctx context.Context, name string, msg segment.Message) {
	if err := s.client.Enqueue(msg); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("analytics enqueue failed",
			zap.String("event", name),
			zap.Error(err),
		)
	}
}

type callback struct {
	log *zap.Logger
}

func (c callback) Success(segment.Message) {}

func (c callback) Failure(msg segment.Message, err error) {
	if c.log == nil {
		return
	}
	c.log.Warn("analytics delivery failed", zap.Error(err))
}
