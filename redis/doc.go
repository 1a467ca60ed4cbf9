// Package redis provides the Redis client shared by the run store and the
// signal transport.
//
// It wraps go-redis with dagflow logging, key namespacing, and component
// lifecycle (Start/Stop/Health). Every key and channel is prefixed with
// Config.KeyPrefix:
//
//	c, _ := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	c.Key("run", id) // "dagflow:run:<id>"
package redis
