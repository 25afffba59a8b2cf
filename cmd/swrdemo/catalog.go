package main

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type Product struct {
	ID        int       `msgpack:"id" json:"id"`
	Name      string    `msgpack:"name" json:"name"`
	Price     int64     `msgpack:"price" json:"price"`
	UpdatedAt time.Time `msgpack:"updated_at" json:"updated_at"`
}

var errNotFound = errors.New("product not found")

// catalog stands in for a slow product backend.
type catalog struct {
	latency time.Duration
	calls   atomic.Int64

	mu       sync.Mutex
	products map[int]Product
}

func newCatalog(latency time.Duration) *catalog {
	c := &catalog{latency: latency, products: make(map[int]Product)}
	for i := 1; i <= 100; i++ {
		c.products[i] = Product{ID: i, Name: "product-" + strconv.Itoa(i), Price: int64(i) * 100}
	}
	return c
}

func (c *catalog) fetch(ctx context.Context, id int) (Product, error) {
	c.calls.Add(1)
	select {
	case <-time.After(c.latency):
	case <-ctx.Done():
		return Product{}, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, errNotFound
	}
	p.UpdatedAt = time.Now()
	return p, nil
}

func (c *catalog) setPrice(id int, price int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return false
	}
	p.Price = price
	c.products[id] = p
	return true
}
