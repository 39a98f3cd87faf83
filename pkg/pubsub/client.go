// Package pubsub delivers outbox messages to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gpubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/outbox"
)

var errNoProject = errors.New("pubsub: PDV_GCP_PROJECT_ID is required")

// Client is an outbox.Sink backed by Pub/Sub. Publishers are created once
// per topic and reused.
type Client struct {
	api     *gpubsub.Client
	project string
	topic   string

	mu         sync.Mutex
	publishers map[string]*gpubsub.Publisher
}

var _ outbox.Sink = (*Client)(nil)

// Dial connects to Pub/Sub and fails when the sales topic is missing.
func Dial(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errNoProject
	}
	api, err := gpubsub.NewClient(ctx, project, credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}
	c := &Client{api: api, project: project, topic: cfg.SalesTopic, publishers: map[string]*gpubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.TopicPath(cfg.SalesTopic)), "pubsub ready")
	}
	return c, nil
}

func credentials(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if file := strings.TrimSpace(gcp.ApplicationCredentials); file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

// TopicPath expands a short topic id to projects/<project>/topics/<id>.
// Full resource names pass through.
func (c *Client) TopicPath(topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/"):
		return topic
	case c == nil || c.project == "":
		return ""
	}
	return "projects/" + c.project + "/topics/" + topic
}

// Ping checks that the sales topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("pubsub: client not connected")
	}
	path := c.TopicPath(c.topic)
	if path == "" {
		return errors.New("pubsub: sales topic is not configured")
	}
	_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: path})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("pubsub: topic %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("pubsub: get topic %s: %w", path, err)
	}
	return nil
}

// Send publishes msg and waits for the server id. Rejections that a retry
// cannot change are wrapped in outbox.ErrPermanent.
func (c *Client) Send(ctx context.Context, topic string, msg outbox.Message) error {
	pub, err := c.publisher(topic)
	if err != nil {
		return err
	}
	result := pub.Publish(ctx, &gpubsub.Message{Data: msg.Data, Attributes: msg.Attributes})
	if _, err := result.Get(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Client) publisher(topic string) (*gpubsub.Publisher, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("pubsub: client not connected")
	}
	path := c.TopicPath(topic)
	if path == "" {
		return nil, fmt.Errorf("%w: no topic resolved from %q", outbox.ErrPermanent, topic)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[path]; ok {
		return p, nil
	}
	p := c.api.Publisher(path)
	c.publishers[path] = p
	return p, nil
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.PermissionDenied, codes.FailedPrecondition:
		return fmt.Errorf("%w: %v", outbox.ErrPermanent, err)
	}
	return err
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for _, p := range c.publishers {
		p.Stop()
	}
	c.publishers = nil
	c.mu.Unlock()
	return c.api.Close()
}
