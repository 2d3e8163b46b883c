package stripe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

const (
	EnvTest = "test"
	EnvLive = "live"
)

// keyPrefixes lists the secret and restricted key prefixes each mode accepts.
var keyPrefixes = map[string][]string{
	EnvTest: {"sk_test", "rk_test"},
	EnvLive: {"sk_live", "rk_live"},
}

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", EnvTest, EnvLive)
)

// Client carries the settings shared by the checkout gateway and the
// webhook endpoint. The API key itself lives in the stripe package global.
type Client struct {
	env           string
	signingSecret string
	currency      string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	if env == "" {
		env = EnvTest
	}
	accepted, ok := keyPrefixes[env]
	if !ok {
		return nil, errInvalidStripeEnv
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.WebhookSecret)
	switch {
	case apiKey == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	case !slices.ContainsFunc(accepted, func(prefix string) bool { return strings.HasPrefix(apiKey, prefix) }):
		return nil, fmt.Errorf("stripe environment %q requires a %s secret key (%s)", env, env, strings.Join(accepted, "/"))
	}

	stripe.Key = apiKey
	stripe.DefaultLeveledLogger = &stripe.LeveledLogger{Level: stripe.LevelError}

	c := &Client{
		env:           env,
		signingSecret: secret,
		currency:      strings.ToLower(strings.TrimSpace(cfg.Currency)),
	}
	if c.currency == "" {
		c.currency = string(stripe.CurrencyUSD)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env": c.env,
			"currency":   c.currency,
		}), "stripe client initialized")
	}
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

// SigningSecret verifies Stripe-Signature headers.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// Currency is the lowercase ISO code used for checkout line items.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}
