package manager

import (
	"context"
	"fmt"

	"github.com/openfroyo/channels/pkg/catalog"
	"github.com/openfroyo/channels/pkg/policy"
	"github.com/openfroyo/channels/pkg/stores"
)

// Reload re-reads the catalog and the policy directory. On error the
// previous catalog and policies stay in use.
func (s *Service) Reload(ctx context.Context) error {
	err := s.reload(ctx)
	s.tel.Metrics.RecordCatalogReload(err)
	if err != nil {
		s.appendEvent(ctx, nil, stores.EventLevelError, "catalog reload failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return err
}

func (s *Service) reload(ctx context.Context) error {
	cat, err := s.loader.Load(s.cfg.CatalogDir)
	if err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}

	var policies []policy.Policy
	if s.cfg.PolicyDir != "" {
		policies, err = policy.NewLoader(s.root).LoadFromPaths(ctx, []string{s.cfg.PolicyDir})
		if err != nil {
			return fmt.Errorf("failed to reload policies: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.policies.ReplacePolicies(policies); err != nil {
		return fmt.Errorf("failed to reload policies: %w", err)
	}
	return s.setCatalog(ctx, cat)
}

func (s *Service) Watch(ctx context.Context) error {
	err := s.loader.Watch(ctx, s.cfg.CatalogDir, catalog.DefaultReloadDelay, func(cat *catalog.Catalog) {
		s.mu.Lock()
		defer s.mu.Unlock()

		err := s.setCatalog(ctx, cat)
		s.tel.Metrics.RecordCatalogReload(err)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to apply reloaded catalog")
		}
	})
	if err != nil {
		return err
	}

	if s.cfg.PolicyDir == "" {
		return nil
	}
	return policy.NewLoader(s.root).Watch(ctx, []string{s.cfg.PolicyDir}, func(policies []policy.Policy) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.policies.ReplacePolicies(policies)
	})
}

// setCatalog swaps the catalog in use. Callers hold s.mu.
func (s *Service) setCatalog(ctx context.Context, cat *catalog.Catalog) error {
	if err := s.policies.SetCatalog(cat); err != nil {
		return err
	}
	s.catalog = cat

	s.logger.Info().Int("channels", len(cat.Channels)).Msg("Catalog reloaded")
	s.appendEvent(ctx, nil, stores.EventLevelInfo, "catalog reloaded", map[string]interface{}{
		"channels": len(cat.Channels),
	})
	return nil
}
