// Package cache provides byte-oriented caching with TTL, used to memoize
// model-service classifications so repeated windows do not hit the network.
package cache

import "time"

// BytesCache stores raw bytes under a string key with an expiry.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
