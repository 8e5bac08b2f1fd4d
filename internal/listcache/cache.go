// Package listcache caches whole entity collections in Redis under versioned keys.
// A write bumps the collection version, which orphans every key built from the old one,
// and publishes the collection name so subscribers can tell their clients to refetch.
package listcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Collection names.
const (
	Vendors            = "vendors"
	VendorRates        = "vendor_rates"
	VendorParts        = "vendor_parts"
	Parts              = "parts"
	ReorderLevels      = "reorder_levels"
	Departments        = "departments"
	GRRs               = "grrs"
	MIRs               = "mirs"
	PurchaseOrders     = "purchase_orders"
	QualityInspections = "quality_inspections"
	StockMovements     = "stock_movements"
)

const (
	keyPrefix = "scm:collection"
	// InvalidationChannel carries the name of each invalidated collection.
	InvalidationChannel = "scm.invalidate"
)

// Cache wraps Redis based caching with per-collection version counters.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// New instantiates the cache. A nil client disables caching; loaders run every time.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(collection string) string {
	return keyPrefix + ":" + collection + ":version"
}

// Version returns the current version of collection, initialising it when missing.
func (c *Cache) Version(ctx context.Context, collection string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(collection)).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so two first readers agree on the initial version.
		if err := c.client.SetNX(ctx, versionKey(collection), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey(collection)).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a key for name that changes whenever any of the collections changes.
func (c *Cache) BuildKey(ctx context.Context, name string, collections ...string) (string, error) {
	deps := append([]string(nil), collections...)
	sort.Strings(deps)
	parts := []string{keyPrefix, name}
	for _, col := range deps {
		ver, err := c.Version(ctx, col)
		if err != nil {
			return "", err
		}
		parts = append(parts, col+"="+strconv.FormatInt(ver, 10))
	}
	return strings.Join(parts, ":"), nil
}

// FetchJSON loads a cached value into dest or populates it using loader.
// Concurrent misses on the same key share one loader call.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("listcache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	// The shared load outlives any one caller; each waiter still honours its own ctx below.
	loadCtx := context.WithoutCancel(ctx)
	res := c.group.DoChan(key, func() (any, error) {
		value, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out := <-res:
		if out.Err != nil {
			return out.Err
		}
		return json.Unmarshal(out.Val.([]byte), dest)
	}
}

// Collection returns every row of collection, loading and caching on a miss.
func Collection[T any](ctx context.Context, c *Cache, collection string, loader func(context.Context) ([]T, error)) ([]T, error) {
	key, err := c.BuildKey(ctx, "rows", collection)
	if err != nil {
		return nil, fmt.Errorf("listcache: key %s: %w", collection, err)
	}
	var rows []T
	err = c.FetchJSON(ctx, key, &rows, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Invalidate bumps the version of each collection and announces it on InvalidationChannel.
func (c *Cache) Invalidate(ctx context.Context, collections ...string) error {
	if c == nil || c.client == nil {
		return nil
	}
	for _, col := range collections {
		if err := c.client.Incr(ctx, versionKey(col)).Err(); err != nil {
			return fmt.Errorf("listcache: bump %s: %w", col, err)
		}
		if err := c.client.Publish(ctx, InvalidationChannel, col).Err(); err != nil {
			return fmt.Errorf("listcache: publish %s: %w", col, err)
		}
	}
	return nil
}

// Subscribe calls fn with each invalidated collection name until ctx ends.
func (c *Cache) Subscribe(ctx context.Context, fn func(collection string)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, InvalidationChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("listcache: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					fn(msg.Payload)
				}
			}
		}
	}()
	return nil
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
