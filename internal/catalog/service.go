// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog is the surface the presentation layer calls into.

It composes the loaded dataset, the identity resolver, the leader index, the
collection and the filter state behind six operations: Quantity, SetQuantity,
IsLeader, ResolveKey, LoadAll and Visible. [Handler] exposes them as JSON.
*/
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/taibuivan/cardbinder/internal/card"
	"github.com/taibuivan/cardbinder/internal/collection"
	"github.com/taibuivan/cardbinder/internal/dataset"
	"github.com/taibuivan/cardbinder/internal/filter"
	"github.com/taibuivan/cardbinder/internal/offline"
	"github.com/taibuivan/cardbinder/internal/platform/apperr"
	"github.com/taibuivan/cardbinder/internal/platform/constants"
)

// CardView is one grid cell as the browser renders it.
type CardView struct {
	card.Card
	Key       string     `json:"key"`
	Image     string     `json:"image"`
	Leader    bool       `json:"leader"`
	Quantity  int        `json:"quantity"`
	Indicator []card.Pip `json:"indicator"`
}

// Deps groups the collaborators of a [Service].
type Deps struct {
	Holder     *dataset.Holder
	Loader     *dataset.Loader
	Resolver   *card.Resolver
	Index      *card.Index
	Collection *collection.Store
	Filters    *filter.Store
	Manager    *offline.Manager
	Logger     *slog.Logger
}

// Service implements the catalog operations.
type Service struct {
	holder     *dataset.Holder
	loader     *dataset.Loader
	resolver   *card.Resolver
	index      *card.Index
	collection *collection.Store
	filters    *filter.Store
	manager    *offline.Manager
	logger     *slog.Logger
}

/*
NewService wires the collaborators and subscribes to dataset reloads.

Every publish invalidates the key memo, rebuilds the leader index and moves
legacy code-only collection entries to full keys.
*/
func NewService(deps Deps) *Service {
	service := &Service{
		holder:     deps.Holder,
		loader:     deps.Loader,
		resolver:   deps.Resolver,
		index:      deps.Index,
		collection: deps.Collection,
		filters:    deps.Filters,
		manager:    deps.Manager,
		logger:     deps.Logger,
	}

	service.holder.Subscribe(service.onReload)
	return service
}

func (service *Service) onReload(cards []card.Card) {
	service.resolver.Invalidate()
	service.index.Reset(cards)
	if len(cards) > 0 {
		service.collection.MigrateLegacy(cards, service.resolver.Key)
	}
}

// # Collaborator Contract

// Quantity returns the owned copies of c.
func (service *Service) Quantity(c card.Card) int {
	return service.collection.Quantity(service.resolver.Key(c))
}

// SetQuantity stores the owned copies of c and returns the stored value.
func (service *Service) SetQuantity(c card.Card, requested any) int {
	return service.collection.SetQuantity(service.resolver.Key(c), requested)
}

// SetQuantityByKey stores the owned copies under an already-resolved key.
func (service *Service) SetQuantityByKey(key string, requested any) int {
	return service.collection.SetQuantity(key, requested)
}

// IsLeader reports whether the loaded card with this code is a leader.
func (service *Service) IsLeader(code string) bool {
	return service.index.IsLeader(code)
}

// ResolveKey returns the collection key of c.
func (service *Service) ResolveKey(c card.Card) string {
	return service.resolver.Key(c)
}

// LoadAll reloads the given sets, or the configured ones when empty.
func (service *Service) LoadAll(ctx context.Context, sets []string) error {
	return mapDatasetError(service.loader.Reload(ctx, sets))
}

/*
Visible returns the loaded cards that pass the query and the stored filters.

Returns:
  - []card.Card: Matching cards in catalog order
  - error: NOT_LOADED before the first load, NO_CARDS after an empty one
*/
func (service *Service) Visible(query string) ([]card.Card, error) {
	cards, err := service.holder.Cards()
	if err != nil {
		return nil, mapDatasetError(err)
	}
	return filter.Visible(cards, query, service.filters.State()), nil
}

// # Views

// View decorates one card for the grid.
func (service *Service) View(c card.Card) CardView {
	key := service.resolver.Key(c)
	leader := service.index.IsLeader(c.Code)
	quantity := service.collection.Quantity(key)

	return CardView{
		Card:      c,
		Key:       key,
		Image:     service.imagePath(c),
		Leader:    leader,
		Quantity:  quantity,
		Indicator: card.Indicator(quantity, leader),
	}
}

// imagePath routes artwork under the asset base through the local proxy,
// so it is cached by the image partition.
func (service *Service) imagePath(c card.Card) string {
	resolved := service.resolver.ImageURL(c)
	if resolved == "" {
		return constants.PlaceholderPath
	}

	base := service.resolver.AssetBase()
	if rest, ok := strings.CutPrefix(resolved, base); ok && base != "" {
		return "/" + strings.TrimLeft(rest, "/")
	}
	return resolved
}

// Lookup returns the loaded card with this code.
func (service *Service) Lookup(code string) (card.Card, error) {
	if _, err := service.holder.Cards(); err != nil {
		return card.Card{}, mapDatasetError(err)
	}
	c, ok := service.index.Lookup(code)
	if !ok {
		return card.Card{}, apperr.NotFound("Card")
	}
	return c, nil
}

// Status returns the current dataset snapshot.
func (service *Service) Status() *dataset.Snapshot {
	return service.holder.Snapshot()
}

// # Collection & Filters

// Collection returns every owned key with its quantity.
func (service *Service) Collection() map[string]int {
	return service.collection.Entries()
}

// Filters returns the stored facet selection.
func (service *Service) Filters() filter.State {
	return service.filters.State()
}

// SetFilters replaces the stored facet selection.
func (service *Service) SetFilters(ctx context.Context, state filter.State) (filter.State, error) {
	for group := range state {
		if !group.Known() {
			return nil, apperr.ValidationError("Unknown filter group",
				apperr.FieldError{Field: string(group), Message: "Must be one of the filter groups"})
		}
	}
	return service.filters.Set(ctx, state)
}

// # Offline Cache

// CacheStats returns the per-partition entry counts.
func (service *Service) CacheStats(ctx context.Context) ([]offline.PartitionStats, error) {
	stats, err := service.manager.Stats(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}

// SweepCache runs one expiry and eviction pass now.
func (service *Service) SweepCache(ctx context.Context) []offline.SweepResult {
	results := service.manager.Sweep(ctx)
	service.logger.InfoContext(ctx, "offline_sweep_requested", slog.Int("partitions", len(results)))
	return results
}

func mapDatasetError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dataset.ErrNoCards):
		return apperr.NoCards()
	case errors.Is(err, dataset.ErrNotLoaded):
		return apperr.NotLoaded()
	default:
		return err
	}
}
