// Package service implements the connector registry: the management surface
// that stores per-connector configuration and enforces the activation rules
// (at most one SMS and one email connector enabled, no two enabled social
// connectors sharing a target and platform).
package service

import (
	"context"
	"encoding/json"

	"signon/backend/internal/apperr"
	"signon/backend/internal/connector"
	"signon/backend/internal/connector/domain"
)

// Store is the persistence surface the registry needs.
type Store interface {
	GetAll(ctx context.Context) ([]*domain.ConnectorConfig, error)
	GetByID(ctx context.Context, connectorID string) (*domain.ConnectorConfig, error)
	Upsert(ctx context.Context, c *domain.ConnectorConfig) error
	SetEnabled(ctx context.Context, connectorID string, enabled bool) error
	SetEnabledExclusive(ctx context.Context, connectorID string, typ connector.Type) error
}

// Connector is the merged view of an implementation's metadata and its stored
// configuration, as exposed by the management API.
type Connector struct {
	connector.Metadata
	Config  json.RawMessage `json:"config"`
	Enabled bool            `json:"enabled"`
}

type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// List returns the merged view of every known implementation, ordered by id.
// Implementations with no stored configuration appear disabled with an empty
// config.
func (r *Registry) List(ctx context.Context) ([]*Connector, error) {
	stored, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.ConnectorConfig, len(stored))
	for _, c := range stored {
		byID[c.ConnectorID] = c
	}
	impls := connector.Implementations()
	out := make([]*Connector, 0, len(impls))
	for _, impl := range impls {
		out = append(out, mergeView(impl, byID[impl.Metadata.ID]))
	}
	return out, nil
}

// Get returns the merged view for connectorID.
func (r *Registry) Get(ctx context.Context, connectorID string) (*Connector, error) {
	impl, ok := connector.ResolveImplementation(connectorID)
	if !ok {
		return nil, apperr.New(apperr.ConnectorNotFoundWithID, map[string]any{"connectorId": connectorID})
	}
	cfg, err := r.store.GetByID(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	return mergeView(impl, cfg), nil
}

// UpsertConfig validates raw against the implementation and stores it. The
// target of a social connector is fixed on first write; a later write with a
// different target is rejected. The enabled flag is left untouched.
func (r *Registry) UpsertConfig(ctx context.Context, connectorID string, raw json.RawMessage) (*Connector, error) {
	impl, ok := connector.ResolveImplementation(connectorID)
	if !ok {
		return nil, apperr.New(apperr.ConnectorNotFoundWithID, map[string]any{"connectorId": connectorID})
	}
	if err := impl.ValidateConfig(raw); err != nil {
		return nil, err
	}
	target := configTarget(impl, raw)
	existing, err := r.store.GetByID(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Target != target {
		return nil, apperr.New(apperr.ConnectorCanNotModifyTarget, nil)
	}
	cfg := &domain.ConnectorConfig{
		ConnectorID: connectorID,
		Type:        impl.Metadata.Type,
		Target:      target,
		Platform:    impl.Metadata.Platform,
		Config:      raw,
	}
	if existing != nil {
		cfg.Enabled = existing.Enabled
	}
	if err := r.store.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return r.Get(ctx, connectorID)
}

// SetEnabled flips a connector's enabled flag. Enabling an SMS or email
// connector disables the other connectors of the same type. Enabling a social
// connector fails when another enabled social connector serves the same
// target on the same platform. Disabling is how a connector is removed; rows
// are never deleted.
func (r *Registry) SetEnabled(ctx context.Context, connectorID string, enabled bool) (*Connector, error) {
	impl, ok := connector.ResolveImplementation(connectorID)
	if !ok {
		return nil, apperr.New(apperr.ConnectorNotFoundWithID, map[string]any{"connectorId": connectorID})
	}
	cfg, err := r.store.GetByID(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, apperr.New(apperr.ConnectorNotFoundWithID, map[string]any{"connectorId": connectorID})
	}
	if !enabled {
		if err := r.store.SetEnabled(ctx, connectorID, false); err != nil {
			return nil, err
		}
		return r.Get(ctx, connectorID)
	}
	switch impl.Metadata.Type {
	case connector.TypeSMS, connector.TypeEmail:
		if err := r.store.SetEnabledExclusive(ctx, connectorID, impl.Metadata.Type); err != nil {
			return nil, err
		}
	case connector.TypeSocial:
		if err := r.checkSocialConflict(ctx, cfg); err != nil {
			return nil, err
		}
		if err := r.store.SetEnabled(ctx, connectorID, true); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, connectorID)
}

// ActiveSender builds the sender for the single enabled connector of typ.
func (r *Registry) ActiveSender(ctx context.Context, typ connector.Type) (connector.Sender, error) {
	cfg, impl, err := r.activeOfType(ctx, typ)
	if err != nil {
		return nil, err
	}
	return impl.NewSender(cfg.Config)
}

// ActiveSocial builds the exchanger for the enabled social connector serving
// target, and returns its stored configuration so callers can bind the
// resulting identity to the connector.
func (r *Registry) ActiveSocial(ctx context.Context, target string) (connector.SocialExchanger, *domain.ConnectorConfig, error) {
	stored, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, cfg := range stored {
		if !cfg.Enabled || cfg.Type != connector.TypeSocial || cfg.Target != target {
			continue
		}
		impl, ok := connector.ResolveImplementation(cfg.ConnectorID)
		if !ok {
			continue
		}
		exchanger, err := impl.NewSocial(cfg.Config)
		if err != nil {
			return nil, nil, err
		}
		return exchanger, cfg, nil
	}
	return nil, nil, apperr.New(apperr.ConnectorNotFound, map[string]any{"type": string(connector.TypeSocial)})
}

func (r *Registry) activeOfType(ctx context.Context, typ connector.Type) (*domain.ConnectorConfig, *connector.Implementation, error) {
	stored, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, cfg := range stored {
		if !cfg.Enabled || cfg.Type != typ {
			continue
		}
		impl, ok := connector.ResolveImplementation(cfg.ConnectorID)
		if !ok {
			continue
		}
		return cfg, impl, nil
	}
	return nil, nil, apperr.New(apperr.ConnectorNotFound, map[string]any{"type": string(typ)})
}

func (r *Registry) checkSocialConflict(ctx context.Context, cfg *domain.ConnectorConfig) error {
	stored, err := r.store.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, other := range stored {
		if other.ConnectorID == cfg.ConnectorID || !other.Enabled || other.Type != connector.TypeSocial {
			continue
		}
		if other.Target == cfg.Target && other.Platform == cfg.Platform {
			return apperr.New(apperr.ConnectorMultipleTargetSamePlatform, nil)
		}
	}
	return nil
}

// configTarget resolves the effective target: an explicit "target" field in
// the raw config wins over the implementation default.
func configTarget(impl *connector.Implementation, raw json.RawMessage) string {
	var probe struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.Target != "" {
		return probe.Target
	}
	return impl.Metadata.Target
}

func mergeView(impl *connector.Implementation, cfg *domain.ConnectorConfig) *Connector {
	view := &Connector{Metadata: impl.Metadata, Config: json.RawMessage("{}")}
	if cfg != nil {
		view.Config = cfg.Config
		view.Enabled = cfg.Enabled
		if cfg.Target != "" {
			view.Target = cfg.Target
		}
	}
	return view
}
