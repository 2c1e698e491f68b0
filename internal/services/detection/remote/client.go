// Package remote talks to the inference server over gRPC. Requests and
// responses are google.protobuf.Struct values so no generated stubs are needed
// on either side.
package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"vigil-worker-go/internal/models"
)

var ErrMalformedResponse = errors.New("malformed classifier response")

// FrameEncoder turns a frame into the image bytes the model expects.
type FrameEncoder func(*models.Frame) ([]byte, error)

type Client struct {
	target       string
	violentIndex int
	encode       FrameEncoder
	dialOpts     []grpc.DialOption

	mu        sync.Mutex
	conn      *grpc.ClientConn
	isHealthy bool
}

// NewClient creates the client and checks the server once. An unreachable
// server is not an error; health is re-checked on the next call.
func NewClient(target string, violentIndex int, encode FrameEncoder, opts ...grpc.DialOption) *Client {
	log.Info().Str("url", target).Msg("Initializing classifier client")

	c := &Client{
		target:       target,
		violentIndex: violentIndex,
		encode:       encode,
		dialOpts:     opts,
	}

	c.mu.Lock()
	err := c.connect()
	c.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("Classifier not available, will retry later")
	}
	return c
}

// connect must be called with mu held. The ClientConn is created once and
// shared by every caller; grpc reconnects it on its own, so an unhealthy
// connection is only re-checked, never replaced while calls may be in flight.
func (c *Client) connect() error {
	if c.conn == nil {
		opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, c.dialOpts...)
		conn, err := grpc.NewClient(c.target, opts...)
		if err != nil {
			return fmt.Errorf("failed to connect to classifier: %w", err)
		}
		c.conn = conn
	}

	// Test connection with health check
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("classifier health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("classifier not serving: %s", resp.GetStatus())
	}

	if !c.isHealthy {
		log.Info().Str("url", c.target).Msg("Successfully connected to classifier")
	}
	c.isHealthy = true
	return nil
}

func (c *Client) ensureConnection() (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isHealthy && c.conn != nil {
		return c.conn, nil
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c.conn, nil
}

// observeError marks the server unhealthy only for failures that say
// something about the server. A caller whose own context ended (camera
// stopped, per-call timeout) leaves the shared connection alone.
func (c *Client) observeError(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.Internal, codes.Unimplemented:
		c.mu.Lock()
		c.isHealthy = false
		c.mu.Unlock()
	}
}

// Classify sends one sequence to the inference server.
func (c *Client) Classify(ctx context.Context, seq models.FrameSequence) (models.Classification, error) {
	req, err := c.buildRequest(seq)
	if err != nil {
		return models.Classification{}, err
	}

	conn, err := c.ensureConnection()
	if err != nil {
		return models.Classification{}, fmt.Errorf("classifier unavailable: %w", err)
	}

	start := time.Now()
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, classifyMethod, req, resp); err != nil {
		c.observeError(ctx, err)
		return models.Classification{}, err
	}

	result, err := c.parseResponse(resp)
	if err != nil {
		return models.Classification{}, err
	}
	result.Latency = time.Since(start)
	return result, nil
}

func (c *Client) buildRequest(seq models.FrameSequence) (*structpb.Struct, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("empty frame sequence")
	}

	frames := make([]interface{}, 0, len(seq))
	for _, f := range seq {
		data, err := c.encode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to encode frame %d: %w", f.Seq, err)
		}
		frames = append(frames, base64.StdEncoding.EncodeToString(data))
	}

	first := seq.First()
	return structpb.NewStruct(map[string]interface{}{
		"camera_id": first.CameraID,
		"width":     first.Width,
		"height":    first.Height,
		"frames":    frames,
	})
}

func (c *Client) parseResponse(resp *structpb.Struct) (models.Classification, error) {
	fields := resp.GetFields()

	v, ok := fields["class_index"]
	if !ok {
		return models.Classification{}, fmt.Errorf("%w: missing class_index", ErrMalformedResponse)
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return models.Classification{}, fmt.Errorf("%w: class_index is not a number", ErrMalformedResponse)
	}

	result := models.Classification{
		ClassIndex: int(num.NumberValue),
		Name:       fields["label"].GetStringValue(),
		Score:      fields["score"].GetNumberValue(),
		Label:      models.LabelNonViolent,
	}
	if result.ClassIndex == c.violentIndex {
		result.Label = models.LabelViolent
	}
	return result, nil
}

// HealthCheck reports whether the inference server is serving.
func (c *Client) HealthCheck(ctx context.Context) error {
	conn, err := c.ensureConnection()
	if err != nil {
		return err
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		c.observeError(ctx, err)
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		c.mu.Lock()
		c.isHealthy = false
		c.mu.Unlock()
		return fmt.Errorf("classifier not serving: %s", resp.GetStatus())
	}
	return nil
}

func (c *Client) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHealthy
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isHealthy = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
