// Package sharding spreads keyed work over a fixed number of shards.
package sharding

import "github.com/cespare/xxhash/v2"

type ShardRouter struct {
	ShardCount int
}

func NewShardRouter(shardCount int) *ShardRouter {
	if shardCount < 1 {
		shardCount = 1
	}
	return &ShardRouter{
		ShardCount: shardCount,
	}
}

// GetShard maps key onto [0, ShardCount). Equal keys always share a shard.
func (r *ShardRouter) GetShard(key string) int {
	return int(xxhash.Sum64String(key) % uint64(r.ShardCount))
}
