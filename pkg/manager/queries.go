package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/registry"
	"github.com/openfroyo/channels/pkg/stores"
)

// List returns every catalog channel with its current state.
func (s *Service) List(ctx context.Context) ([]ChannelSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := s.open(nil)
	if err != nil {
		return nil, err
	}

	out := make([]ChannelSummary, 0, len(sess.registry.Names()))
	for _, name := range sess.registry.Names() {
		ch, _ := sess.registry.Channel(name)
		out = append(out, summarize(ch))
	}
	return out, nil
}

// Show returns the detailed state of one channel.
func (s *Service) Show(ctx context.Context, name string) (*ChannelInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := s.open(nil)
	if err != nil {
		return nil, err
	}

	ch, ok := sess.registry.Channel(name)
	if !ok {
		return nil, channels.NewUnknownChannelError(name)
	}

	relations, err := sess.resolver.Relations(name)
	if err != nil {
		return nil, err
	}
	enableable, err := sess.resolver.IsEnableable(name)
	if err != nil {
		return nil, err
	}

	def := ch.Definition()
	info := &ChannelInfo{
		ChannelSummary: summarize(ch),
		Description:    def.Description,
		Enableable:     enableable,
		Depends:        def.Depends,
		Conflicts:      def.Conflicts,
		Relations:      relations,
	}

	for _, repo := range def.Repositories {
		enabled, err := ch.IsComponentEnabled(repo.Name)
		if err != nil {
			return nil, err
		}
		status := ComponentStatus{
			Name:     repo.Name,
			Enabled:  enabled,
			Proposed: repo.Proposed,
			Codename: repo.Codename,
		}
		for _, e := range ch.Entries(repo.Name) {
			status.Entries = append(status.Entries, e.String())
		}
		info.Components = append(info.Components, status)
	}

	return info, nil
}

// Blockers returns the relations currently preventing action on a channel.
func (s *Service) Blockers(ctx context.Context, name string, action channels.Action) ([]channels.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tel.Tracer.StartResolveSpan(ctx, name, string(action))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := s.open(nil)
	if err != nil {
		return nil, err
	}

	blockers, err := sess.resolver.Blockers(name, action)
	if err != nil {
		return nil, err
	}
	if blockers == nil {
		blockers = []channels.Relation{}
	}
	return blockers, nil
}

// History returns recorded operations, newest first.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]*stores.Operation, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListOperations(ctx, stores.OperationFilter{
		Channel: filter.Channel,
		Status:  filter.Status,
		Limit:   filter.Limit,
	})
}

// Operation returns a recorded operation with its steps and events.
func (s *Service) Operation(ctx context.Context, id string) (*OperationRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}

	op, err := s.history.GetOperation(ctx, id)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, fmt.Errorf("operation %s not found", id)
		}
		return nil, err
	}

	steps, err := s.history.ListSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.history.GetEvents(ctx, &id, nil, 0, 0)
	if err != nil {
		return nil, err
	}

	return &OperationRecord{Operation: op, Steps: steps, Events: events}, nil
}

func summarize(ch *registry.Channel) ChannelSummary {
	def := ch.Definition()
	return ChannelSummary{
		Name:      def.Name,
		Title:     def.Title,
		Enabled:   ch.Enabled(),
		Essential: def.Essential,
		Provides:  def.Provides,
	}
}
