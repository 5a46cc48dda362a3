// Package payments creates hosted checkout sessions for plan upgrades.
package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"lumina/internal/domain"
	"lumina/internal/infra"
)

// ErrNotConfigured indicates a missing secret key or price.
var ErrNotConfigured = errors.New("payments: stripe is not configured")

// Options configures Checkout.
type Options struct {
	SecretKey  string
	PriceID    string
	SuccessURL string
	CancelURL  string
	Logger     *infra.Logger
	// Backends overrides the Stripe API backends, mainly for tests.
	Backends *stripe.Backends
}

// Customer identifies who is upgrading.
type Customer struct {
	UserID string
	Email  string
}

type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Checkout creates subscription checkout sessions for the Pro plan.
type Checkout struct {
	sessions   sessionCreator
	priceID    string
	successURL string
	cancelURL  string
	logger     *infra.Logger
}

// NewCheckout builds a Checkout backed by the Stripe API client.
func NewCheckout(opts Options) (*Checkout, error) {
	key := strings.TrimSpace(opts.SecretKey)
	price := strings.TrimSpace(opts.PriceID)
	if key == "" || price == "" {
		return nil, ErrNotConfigured
	}
	sc := &client.API{}
	sc.Init(key, opts.Backends)
	return newCheckout(sc.CheckoutSessions, opts), nil
}

func newCheckout(sessions sessionCreator, opts Options) *Checkout {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Checkout{
		sessions:   sessions,
		priceID:    strings.TrimSpace(opts.PriceID),
		successURL: opts.SuccessURL,
		cancelURL:  opts.CancelURL,
		logger:     logger,
	}
}

// CreateSession returns the hosted checkout URL. Nothing is retried.
func (c *Checkout) CreateSession(ctx context.Context, customer Customer) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(c.priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	params.Context = ctx
	if customer.UserID != "" {
		params.ClientReferenceID = stripe.String(customer.UserID)
		params.AddMetadata("user_id", customer.UserID)
	}
	if customer.Email != "" {
		params.CustomerEmail = stripe.String(customer.Email)
	}
	session, err := c.sessions.New(params)
	if err != nil {
		c.logger.Error().Err(err).Str("user_id", customer.UserID).Msg("payments: create checkout session")
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("%w: session %s has no url", domain.ErrCheckoutFailed, session.ID)
	}
	c.logger.Info().Str("user_id", customer.UserID).Str("session_id", session.ID).Msg("payments: checkout session created")
	return session.URL, nil
}
