package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/threadkit/internal/config"
	"github.com/threadkit/internal/gateway"
	"github.com/threadkit/internal/gateway/discussions"
	"github.com/threadkit/internal/identity"
	"github.com/threadkit/internal/store"
)

// buildStore wires the gateway client, the identity gate, and the store
// from configuration, resolving the discussion number if it is not pinned.
func buildStore(ctx context.Context, cfg *config.Config) (*store.Store, int, error) {
	client := discussions.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token)

	gate := buildGate(cfg)

	number := cfg.Discussion.Number
	if number == 0 {
		var err error
		number, err = resolveDiscussion(ctx, client, cfg, gate.IsEligible())
		if err != nil {
			return nil, 0, err
		}
	}

	return store.New(client, gate), number, nil
}

// buildGate derives the acting identity from the configured token. A
// missing or bad token degrades to an anonymous, read-only gate.
func buildGate(cfg *config.Config) identity.Gate {
	if cfg.Identity.Token == "" {
		return identity.Anonymous()
	}
	gate, err := identity.FromToken(cfg.Identity.Token, cfg.Identity.Secret)
	if err != nil {
		log.Warn().Err(err).Msg("identity token rejected, continuing read-only")
	}
	return gate
}

// resolveDiscussion maps the configured content item onto its discussion
// number, creating the discussion when an eligible actor views a content
// item that has none yet.
func resolveDiscussion(ctx context.Context, client *discussions.Client, cfg *config.Config, eligible bool) (int, error) {
	number, err := client.ResolveDiscussion(ctx, cfg.Discussion.ContentType, cfg.Discussion.Identifier)
	if err == nil {
		return number, nil
	}
	if !errors.Is(err, gateway.ErrNoDiscussion) {
		return 0, fmt.Errorf("failed to resolve discussion: %w", err)
	}
	if !eligible {
		return 0, fmt.Errorf("no discussion exists for %s/%s and the current identity cannot create one",
			cfg.Discussion.ContentType, cfg.Discussion.Identifier)
	}
	number, err = client.CreateDiscussion(ctx, cfg.Discussion.ContentType, cfg.Discussion.Identifier)
	if err != nil {
		return 0, fmt.Errorf("failed to create discussion: %w", err)
	}
	return number, nil
}
