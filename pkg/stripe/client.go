package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"

	"github.com/craftora/marketplace-backend/pkg/config"
	"github.com/craftora/marketplace-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultCallTimeout = 15 * time.Second
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API plus env-specific metadata. Every outbound call
// runs under an explicit timeout; a timeout is an unknown outcome and callers
// must never treat it as success.
type Client struct {
	environment   string
	signingSecret string
	callTimeout   time.Duration
}

// CreateIntentInput carries the charge parameters for a new payment intent.
type CreateIntentInput struct {
	AmountCents         int
	ApplicationFeeCents int
	Currency            string
	Metadata            map[string]string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:   env,
		signingSecret: signingSecret,
		callTimeout:   timeout,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreatePaymentIntent opens a new payment intent for the given amount with
// the platform's application fee attached.
func (c *Client) CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*stripe.PaymentIntent, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	currency := input.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(input.AmountCents)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if input.ApplicationFeeCents > 0 {
		params.ApplicationFeeAmount = stripe.Int64(int64(input.ApplicationFeeCents))
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	return paymentintent.New(params)
}

// RetrievePaymentIntent fetches the current state of an intent.
func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(id, params)
}

// CreateRefund issues a refund against a payment intent. A zero amount
// refunds the full charge.
func (c *Client) CreateRefund(ctx context.Context, intentID string, amountCents int) (*stripe.Refund, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	if amountCents > 0 {
		params.Amount = stripe.Int64(int64(amountCents))
	}
	params.Context = ctx
	return refund.New(params)
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := defaultCallTimeout
	if c != nil && c.callTimeout > 0 {
		timeout = c.callTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
