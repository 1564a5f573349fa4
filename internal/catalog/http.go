// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/cardbinder/internal/filter"
	"github.com/taibuivan/cardbinder/internal/offline"
	requestutil "github.com/taibuivan/cardbinder/internal/platform/request"
	"github.com/taibuivan/cardbinder/internal/platform/respond"
	"github.com/taibuivan/cardbinder/internal/platform/validate"
	"github.com/taibuivan/cardbinder/pkg/pagination"
	"github.com/taibuivan/cardbinder/pkg/slice"
)

const (
	maxKeyLength   = 2048
	maxQueryLength = 200
	maxFacetValues = 64
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/cards", func(r chi.Router) {
		r.Get("/", handler.listCards)
		r.Get("/status", handler.status)
		r.Post("/reload", handler.reload)
		r.Get("/{code}/leader", handler.leader)
	})

	router.Get("/collection", handler.getCollection)
	router.Put("/collection", handler.putCollection)

	router.Get("/filters", handler.getFilters)
	router.Put("/filters", handler.putFilters)

	router.Get("/offline", handler.offlineStats)
	router.Post("/offline/sweep", handler.offlineSweep)
}

// # Cards

func (handler *Handler) listCards(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query().Get("q")
	if err := (&validate.Validator{}).MaxLen("q", query, maxQueryLength).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	visible, err := handler.service.Visible(query)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	start, end := params.Window(len(visible))
	views := slice.Map(visible[start:end], handler.service.View)

	respond.Paginated(writer, views, pagination.NewMeta(params.Page, params.Limit, len(visible)))
}

func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.service.Status())
}

type reloadRequest struct {
	Sets []string `json:"sets"`
}

func (handler *Handler) reload(writer http.ResponseWriter, request *http.Request) {
	var input reloadRequest
	if request.ContentLength > 0 {
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}
	if len(input.Sets) == 0 {
		input.Sets = requestutil.List(request, "sets")
	}

	validator := &validate.Validator{}
	for i, set := range input.Sets {
		validator.SetCode(fmt.Sprintf("sets[%d]", i), set)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.LoadAll(request.Context(), input.Sets); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, handler.service.Status())
}

type leaderResponse struct {
	Code   string `json:"code"`
	Leader bool   `json:"leader"`
}

func (handler *Handler) leader(writer http.ResponseWriter, request *http.Request) {
	code := requestutil.Param(request, "code")

	if _, err := handler.service.Lookup(code); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, leaderResponse{Code: code, Leader: handler.service.IsLeader(code)})
}

// # Collection

type collectionResponse struct {
	Entries map[string]int `json:"entries"`
	Count   int            `json:"count"`
}

func (handler *Handler) getCollection(writer http.ResponseWriter, request *http.Request) {
	entries := handler.service.Collection()
	respond.OK(writer, collectionResponse{Entries: entries, Count: len(entries)})
}

type quantityRequest struct {
	Key      string `json:"key"`
	Quantity any    `json:"quantity"`
}

type quantityResponse struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

func (handler *Handler) putCollection(writer http.ResponseWriter, request *http.Request) {
	var input quantityRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := (&validate.Validator{}).
		Required("key", input.Key).
		MaxLen("key", input.Key, maxKeyLength).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stored := handler.service.SetQuantityByKey(input.Key, input.Quantity)
	respond.OK(writer, quantityResponse{Key: input.Key, Quantity: stored})
}

// # Filters

func (handler *Handler) getFilters(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, handler.service.Filters())
}

func (handler *Handler) putFilters(writer http.ResponseWriter, request *http.Request) {
	var input filter.State
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	for group, selection := range input {
		validator.Custom(string(group), len(selection.Values) > maxFacetValues, "Too many selected values")
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := handler.service.SetFilters(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, state)
}

// # Offline Cache

func (handler *Handler) offlineStats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.service.CacheStats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (handler *Handler) offlineSweep(writer http.ResponseWriter, request *http.Request) {
	results := handler.service.SweepCache(request.Context())
	if results == nil {
		results = []offline.SweepResult{}
	}
	respond.OK(writer, results)
}
