package reasoning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/babelcloud/vlm-bridge/config"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultTimeout      = 30 * time.Second

	// Multipart field names and the filename the service expects for the image part.
	queryField     = "query"
	fileField      = "file"
	screenshotName = "screenshot.png"
	screenshotMIME = "image/png"
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	Endpoint string
	// MaxRetries is the total number of attempts, the first one included.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Timeout bounds each attempt separately.
	Timeout time.Duration

	HTTPClient *http.Client
	// ShouldRetry decides whether a failed attempt is retried. Defaults to vision.IsTransient.
	ShouldRetry func(error) bool
	Observer    Observer
	Logger      *logger.Logger
}

// OptionsFromConfig maps the reasoning section of the configuration onto Options.
func OptionsFromConfig(cfg config.ReasoningConfig) Options {
	return Options{
		Endpoint:     cfg.Endpoint,
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Timeout:      cfg.Timeout,
	}
}

// Client talks to the remote VLM service.
type Client struct {
	opts       Options
	httpClient *http.Client
	observer   Observer
	log        *logger.Logger
}

// NewClient validates opts and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("reasoning endpoint is required")
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid reasoning endpoint %q", opts.Endpoint)
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.InitialDelay {
		opts.MaxDelay = opts.InitialDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = vision.IsTransient
	}

	c := &Client{
		opts:       opts,
		httpClient: opts.HTTPClient,
		observer:   opts.Observer,
		log:        opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	if c.log == nil {
		c.log = logger.New()
	}
	return c, nil
}

// Options returns the effective options after defaults were applied.
func (c *Client) Options() Options {
	return c.opts
}

// Reason sends the instruction and screenshot to the service and returns the
// validated answer. Transient failures are retried with exponential backoff;
// everything else, and the last error once attempts run out, is returned
// unchanged.
func (c *Client) Reason(ctx context.Context, instruction string, image []byte) (*vision.Response, error) {
	if mime := mimetype.Detect(image); !mime.Is(screenshotMIME) {
		c.log.Warn("Screenshot looks like %s, sending it as %s", mime.String(), screenshotMIME)
	}
	body, contentType, err := encodeRequest(instruction, image)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reasoning request: %w", err)
	}

	var (
		result  *vision.Response
		attempt int
	)
	operation := func() error {
		attempt++
		resp, err := c.do(ctx, attempt, instruction, image, body, contentType)
		if err == nil {
			result = resp
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if !c.opts.ShouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.log.WithFields(logrus.Fields{
			"attempt":     attempt,
			"maxAttempts": c.opts.MaxRetries,
			"kind":        vision.KindOf(err),
			"retryIn":     wait,
		}).Warnf("Reasoning request failed, retrying: %v", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return result, nil
}

// newBackOff doubles the delay from InitialDelay up to MaxDelay, without
// jitter, and stops after MaxRetries attempts in total.
func (c *Client) newBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.opts.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.opts.MaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries-1))
}

// do performs a single attempt under its own deadline.
func (c *Client) do(ctx context.Context, attempt int, instruction string, image, body []byte, contentType string) (*vision.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.emit(func(o Observer) {
		o.RequestSent(RequestEvent{
			Attempt:     attempt,
			Endpoint:    c.opts.Endpoint,
			Instruction: instruction,
			Image:       image,
			SentAt:      start,
		})
	})

	fail := func(err error, respBody []byte) (*vision.Response, error) {
		c.emit(func(o Observer) {
			o.RequestFailed(ErrorEvent{Attempt: attempt, Err: err, Body: respBody, Duration: time.Since(start)})
		})
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(c.classify(ctx, attemptCtx, err), nil)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(c.classify(ctx, attemptCtx, err), nil)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fail(vision.Upstream(resp.StatusCode, string(respBody)), respBody)
	}

	parsed, err := vision.DecodeResponse(respBody)
	if err != nil {
		return fail(err, respBody)
	}

	duration := time.Since(start)
	c.log.WithFields(logrus.Fields{
		"attempt":  attempt,
		"duration": duration,
		"boxes":    len(parsed.Boxes),
		"action":   parsed.ChosenAction.Action,
	}).Debug("Reasoning response received")

	c.emit(func(o Observer) {
		o.ResponseReceived(ResponseEvent{
			Attempt:  attempt,
			Status:   resp.StatusCode,
			Body:     respBody,
			Response: parsed,
			Image:    image,
			Duration: duration,
		})
	})
	return parsed, nil
}

// classify turns a transport-level failure into a tagged error.
func (c *Client) classify(parent, attemptCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return vision.Timeout(c.opts.Timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return vision.Timeout(c.opts.Timeout, err)
	}
	return vision.Transport(err)
}

// emit calls the observer and swallows panics so instrumentation cannot
// change the outcome of a request.
func (c *Client) emit(fn func(Observer)) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("Reasoning observer panicked: %v", r)
		}
	}()
	fn(c.observer)
}

func encodeRequest(instruction string, image []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(queryField, instruction); err != nil {
		return nil, "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, screenshotName))
	header.Set("Content-Type", screenshotMIME)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
