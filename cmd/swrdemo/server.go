package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/internal/config"
	"go.uber.org/zap"
)

type server struct {
	client  *swrcache.Client
	catalog *catalog
	cache   *swrcache.CacheOptions[Product]
	gather  prometheus.Gatherer
	log     *zap.Logger
}

func newServer(client *swrcache.Client, cat *catalog, cc config.Cache, g prometheus.Gatherer, log *zap.Logger) *server {
	return &server{
		client:  client,
		catalog: cat,
		cache: &swrcache.CacheOptions[Product]{
			MaxAge:   cc.MaxAge,
			StaleTTL: cc.StaleTTL,
			Codec:    codec.Limit[Product]{Inner: codec.Msgpack[Product]{}, MaxDecode: 64 << 10},
		},
		gather: g,
		log:    log,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/{id}", s.getProduct)
	mux.HandleFunc("PUT /products/{id}/price", s.putPrice)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	return mux
}

func (s *server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		http.Error(w, "bad product id", http.StatusBadRequest)
		return
	}

	p, err := swrcache.Await(r.Context(), s.client, swrcache.K("products", strconv.Itoa(id)),
		func(ctx context.Context) (Product, error) { return s.catalog.fetch(ctx, id) },
		s.cache)
	switch {
	case errors.Is(err, errNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.log.Warn("product query failed", zap.Int("id", id), zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

// putPrice updates the backend and invalidates the cached product.
func (s *server) putPrice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad product id", http.StatusBadRequest)
		return
	}
	var body struct {
		Price int64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	if !s.catalog.setPrice(id, body.Price) {
		http.Error(w, errNotFound.Error(), http.StatusNotFound)
		return
	}
	if err := s.client.Invalidate(r.Context(), swrcache.K("products", strconv.Itoa(id))); err != nil {
		s.log.Error("invalidate failed", zap.Int("id", id), zap.Error(err))
		http.Error(w, "price stored, cache not invalidated", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
