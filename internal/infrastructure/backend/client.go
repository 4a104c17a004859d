package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paygate/internal/app/port"
	"paygate/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const publicConfigKey = "public"

// Config holds the backend connection settings.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	PublicConfigTTL time.Duration
}

// APIError is a non-2xx answer from the backend. Message is the backend's own text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request failed with status %d", e.Status)
	}
	return e.Message
}

type envelope struct {
	Data  jsoniter.RawMessage `json:"data"`
	Error string              `json:"error"`
}

// Client is the platform backend's REST client.
type Client struct {
	client      *fasthttp.Client
	baseURL     string
	timeout     time.Duration
	credentials port.CredentialProvider
	configCache *cache.Cache
	logger      *zap.Logger
}

// NewClient creates a backend client. A zero PublicConfigTTL disables caching of the public config.
func NewClient(cfg Config, credentials port.CredentialProvider, logger *zap.Logger) *Client {
	c := &Client{
		client:      &fasthttp.Client{},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     cfg.Timeout,
		credentials: credentials,
		logger:      logger.Named("BackendClient"),
	}
	if cfg.PublicConfigTTL > 0 {
		c.configCache = cache.New(cfg.PublicConfigTTL, 2*cfg.PublicConfigTTL)
	}
	return c
}

// PublicConfig returns the fee recipient and platform fee, cached for the configured TTL.
func (c *Client) PublicConfig(ctx context.Context) (*entity.PublicConfig, error) {
	if c.configCache != nil {
		if cached, found := c.configCache.Get(publicConfigKey); found {
			cfg := cached.(entity.PublicConfig)
			return &cfg, nil
		}
	}

	var cfg entity.PublicConfig
	if err := c.do(ctx, fasthttp.MethodGet, "/config/public", false, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to fetch public config: %w", err)
	}
	if c.configCache != nil {
		c.configCache.Set(publicConfigKey, cfg, cache.DefaultExpiration)
	}
	c.logger.Debug("Fetched public config",
		zap.String("adminWallet", cfg.AdminWallet),
		zap.String("platformFee", cfg.PlatformFee.String()))
	return &cfg, nil
}

// InvalidatePublicConfig drops the cached public config so the next checkout
// reads the current recipient and fee.
func (c *Client) InvalidatePublicConfig() {
	if c.configCache != nil {
		c.configCache.Delete(publicConfigKey)
	}
}

// CreateJob posts a job that spends req.PaymentID.
func (c *Client) CreateJob(ctx context.Context, req entity.CreateJobRequest) (*entity.Job, error) {
	var job entity.Job
	if err := c.do(ctx, fasthttp.MethodPost, "/jobs", true, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ActivatePremium spends paymentID on the job seeker's premium status.
// The backend route and its payment_id body are assumed; the platform API
// only documents the premium verification and status endpoints.
func (c *Client) ActivatePremium(ctx context.Context, paymentID string) (*entity.PremiumActivation, error) {
	body := map[string]string{"payment_id": paymentID}
	var activation entity.PremiumActivation
	if err := c.do(ctx, fasthttp.MethodPost, "/jobseeker/premium", true, body, &activation); err != nil {
		return nil, err
	}
	return &activation, nil
}

// PremiumStatus reports whether the signed-in job seeker already has premium access.
func (c *Client) PremiumStatus(ctx context.Context) (bool, error) {
	var status struct {
		IsPremium bool `json:"is_premium"`
	}
	if err := c.do(ctx, fasthttp.MethodGet, "/jobseeker/premium-status", true, nil, &status); err != nil {
		return false, err
	}
	return status.IsPremium, nil
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	requestURL := c.baseURL + path

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.SetContentTypeBytes([]byte("application/json"))

	if auth {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request to %s: %w", path, err)
		}
		req.SetBodyRaw(payload)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Debug("Backend request", zap.String("method", method), zap.String("url", requestURL))
	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute backend request", zap.String("url", requestURL), zap.Error(err))
			return fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute backend request (with default timeout)", zap.String("url", requestURL), zap.Error(err))
			return fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	rawBody := resp.Body()
	var env envelope
	decodeErr := json.Unmarshal(rawBody, &env)

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		c.logger.Warn("Backend request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", rawBody))
		apiErr := &APIError{Status: status}
		if decodeErr == nil {
			apiErr.Message = env.Error
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response from %s: %w", requestURL, decodeErr)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("backend response carried no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data from %s: %w", requestURL, err)
	}
	return nil
}
