package redisholder

import (
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Holder hands out the current client; the health loop replaces it after a
// reconnect, so callers must not cache the result of Get.
type Holder struct {
	v atomic.Value // redis.UniversalClient
}

func NewHolder(initial redis.UniversalClient) *Holder {
	h := &Holder{}
	h.v.Store(clientBox{initial})
	return h
}

// clientBox keeps atomic.Value happy when the concrete client type changes
// between a single-node and a cluster client.
type clientBox struct {
	c redis.UniversalClient
}

func (h *Holder) Get() redis.UniversalClient {
	b, _ := h.v.Load().(clientBox)
	return b.c
}

func (h *Holder) swap(newc redis.UniversalClient) (old redis.UniversalClient) {
	old = h.Get()
	h.v.Store(clientBox{newc})
	return old
}

func (h *Holder) Close() error {
	if c := h.Get(); c != nil {
		return c.Close()
	}
	return nil
}
