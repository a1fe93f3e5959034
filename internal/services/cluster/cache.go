package cluster

import (
	"time"
)

// ResolveFunc looks up the address of a service.
type ResolveFunc func(serviceName string) (string, error)

type serviceCacheEntry struct {
	address    string
	expiration time.Time
}

type discoveryRequest struct {
	serviceName string
	reply       chan<- discoveryReply
}

type discoveryReply struct {
	address string
	err     error
}

// ServiceCache remembers resolved addresses for ttl. A single goroutine owns
// the entries and serves requests from its mailbox.
type ServiceCache struct {
	entries map[string]serviceCacheEntry
	ttl     time.Duration
	resolve ResolveFunc
	now     func() time.Time

	requestCh chan discoveryRequest
	done      chan struct{}
}

// NewServiceCache starts the cache goroutine; Stop ends it.
func NewServiceCache(ttl time.Duration, resolve ResolveFunc) *ServiceCache {
	sc := &ServiceCache{
		entries:   make(map[string]serviceCacheEntry),
		ttl:       ttl,
		resolve:   resolve,
		now:       time.Now,
		requestCh: make(chan discoveryRequest),
		done:      make(chan struct{}),
	}
	go sc.run()
	return sc
}

func (sc *ServiceCache) run() {
	for {
		select {
		case req := <-sc.requestCh:
			req.reply <- sc.lookup(req.serviceName)
		case <-sc.done:
			return
		}
	}
}

func (sc *ServiceCache) lookup(name string) discoveryReply {
	if e, ok := sc.entries[name]; ok && sc.now().Before(e.expiration) {
		return discoveryReply{address: e.address}
	}
	addr, err := sc.resolve(name)
	if err != nil {
		return discoveryReply{err: err}
	}
	sc.entries[name] = serviceCacheEntry{address: addr, expiration: sc.now().Add(sc.ttl)}
	return discoveryReply{address: addr}
}

// Discover returns the cached address or resolves it.
func (sc *ServiceCache) Discover(serviceName string) (string, error) {
	reply := make(chan discoveryReply, 1)
	select {
	case sc.requestCh <- discoveryRequest{serviceName: serviceName, reply: reply}:
	case <-sc.done:
		return sc.resolve(serviceName)
	}
	r := <-reply
	return r.address, r.err
}

// Stop ends the cache goroutine.
func (sc *ServiceCache) Stop() {
	close(sc.done)
}
