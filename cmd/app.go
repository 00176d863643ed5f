package main

import (
	"context"

	"github.com/quadrant-invest/geointel/internal/catalog"
	"github.com/quadrant-invest/geointel/internal/cluster"
	"github.com/quadrant-invest/geointel/internal/intel"
	"github.com/quadrant-invest/geointel/internal/market"
	"github.com/quadrant-invest/geointel/internal/proximity"
	"github.com/quadrant-invest/geointel/internal/scoring"
)

// app wires the engines to one shared catalog store.
type app struct {
	store     catalog.Store
	proximity *proximity.Service
	scoring   *scoring.Engine
	cluster   *cluster.Engine
	intel     *intel.Analyzer
	market    *market.Service

	closeStore func()
}

func initApp(ctx context.Context) (*app, error) {
	store, closeStore, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	return &app{
		store:      store,
		proximity:  proximity.New(store, cfg.Proximity),
		scoring:    scoring.New(store, cfg.Scoring),
		cluster:    cluster.New(store, cfg.Cluster),
		intel:      intel.New(store, cfg.Intel),
		market:     market.New(store, cfg.Market),
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() {
	a.closeStore()
}
