package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/channels/pkg/catalog"
	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/config"
	"github.com/openfroyo/channels/pkg/policy"
	"github.com/openfroyo/channels/pkg/registry"
	"github.com/openfroyo/channels/pkg/sources"
	"github.com/openfroyo/channels/pkg/stores"
	"github.com/openfroyo/channels/pkg/telemetry"
)

// Service runs channel operations against the configured catalog and apt
// sources. Operations are serialized; the sources list is re-read for every
// operation so changes made by other tools are picked up.
type Service struct {
	mu sync.Mutex

	cfg      *config.Config
	tel      *telemetry.Telemetry
	root     zerolog.Logger
	logger   zerolog.Logger
	loader   *catalog.Loader
	policies *policy.Engine
	history  stores.Store
	catalog  *catalog.Catalog
}

// session is the registry view of a single operation.
type session struct {
	registry *registry.Registry
	resolver *channels.Resolver
	executor *channels.Executor
}

// Open loads the catalog and policies and opens the history store.
func Open(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) (*Service, error) {
	root := tel.Logger.Logger
	s := &Service{
		cfg:    cfg,
		tel:    tel,
		root:   root,
		logger: tel.Logger.Component("manager"),
		loader: catalog.NewLoader(root),
	}

	cat, err := s.loader.Load(cfg.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	s.catalog = cat

	s.policies, err = policy.NewEngine(root)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if err := s.policies.SetCatalog(cat); err != nil {
		return nil, err
	}
	if cfg.PolicyDir != "" {
		if err := s.policies.LoadPolicies(ctx, []string{cfg.PolicyDir}); err != nil {
			return nil, err
		}
	}

	if cfg.History.Enabled {
		store, err := openHistory(ctx, cfg.History)
		if err != nil {
			return nil, err
		}
		s.history = store
	}

	s.logger.Debug().
		Str("catalog", cfg.CatalogDir).
		Str("apt_root", cfg.AptRoot).
		Int("channels", len(cat.Channels)).
		Bool("history", s.history != nil).
		Msg("Channel service opened")

	return s, nil
}

func openHistory(ctx context.Context, cfg config.HistoryConfig) (stores.Store, error) {
	if cfg.Path != stores.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	if cfg.Retention > 0 {
		if _, err := store.PruneOperations(ctx, time.Now().Add(-cfg.Retention)); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

// Close releases the history store.
func (s *Service) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// Catalog returns the catalog currently in use.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Policies returns the policy engine.
func (s *Service) Policies() *policy.Engine {
	return s.policies
}

// open builds a fresh registry, resolver and executor from the sources on disk.
func (s *Service) open(hook channels.StepHook) (*session, error) {
	list, err := sources.Load(s.cfg.AptRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	reg, err := registry.New(s.catalog, list, s.cfg.ListsDir, s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to discover channels: %w", err)
	}

	resolver, err := channels.NewResolver(reg, s.root)
	if err != nil {
		return nil, err
	}

	opts := []channels.ExecutorOption{
		channels.WithPlanGate(s.policies),
		channels.WithComponentGate(s.policies),
	}
	if hook != nil {
		opts = append(opts, channels.WithStepHook(hook))
	}

	s.tel.Metrics.SetChannelCounts(len(reg.Names()), len(reg.Enabled()))

	return &session{
		registry: reg,
		resolver: resolver,
		executor: channels.NewExecutor(reg, resolver, s.root, opts...),
	}, nil
}
