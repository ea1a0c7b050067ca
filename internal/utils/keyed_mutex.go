package utils

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 256

// KeyedMutex serializes work per key using a fixed set of lock shards.
// Distinct keys may share a shard; the same key always maps to the same one.
type KeyedMutex struct {
	shards []sync.Mutex
}

func NewKeyedMutex(shards int) *KeyedMutex {
	if shards <= 0 {
		shards = defaultShards
	}
	return &KeyedMutex{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the shard for key and returns its unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	m := &k.shards[k.index(key)]
	m.Lock()
	return m.Unlock
}

func (k *KeyedMutex) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(k.shards)))
}
