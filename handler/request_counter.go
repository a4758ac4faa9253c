package handler

import (
	"context"
	"device-management-api/common"
	"device-management-api/logger"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "requests:"

// RequestCounter counts requests per method+path in Redis. Keeping the
// counters out of process memory means they survive restarts and aggregate
// across replicas.
type RequestCounter struct {
	rdb *redis.Client
}

func NewRequestCounter(rdb *redis.Client) *RequestCounter {
	return &RequestCounter{rdb: rdb}
}

// Middleware increments the counter for the request's method and path. A
// counting failure never fails the request.
func (c *RequestCounter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.rdb != nil {
			key := counterKeyPrefix + r.Method + " " + r.URL.Path
			if err := c.rdb.Incr(r.Context(), key).Err(); err != nil {
				logger.Log.WithError(err).Debug("Failed to increment request counter")
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Metrics dumps the request counters. Admin only, enforced at the router.
func (c *RequestCounter) Metrics(w http.ResponseWriter, r *http.Request) *common.AppError {
	counts := map[string]int64{}

	if c.rdb != nil {
		ctx := r.Context()
		iter := c.rdb.Scan(ctx, 0, counterKeyPrefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			count, err := c.fetchCount(ctx, key)
			if err != nil {
				return common.NewAppError(http.StatusInternalServerError, "Could not read request counters", err)
			}
			counts[key[len(counterKeyPrefix):]] = count
		}
		if err := iter.Err(); err != nil {
			return common.NewAppError(http.StatusInternalServerError, "Could not read request counters", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(counts)
	return nil
}

func (c *RequestCounter) fetchCount(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}
