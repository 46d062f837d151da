package runtime

import (
	"sync"

	"github.com/a7al3le-dotcom/chat7ob/contract"
)

// Registry resolves connection ids to their active event sinks.
// Transport registers a sink when a socket opens and removes it when the
// socket closes; the coordinator only ever reads.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]contract.EventSink)}
}

func (r *Registry) Subscribe(connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[connectionID] = sink
}

func (r *Registry) Unsubscribe(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, connectionID)
}

func (r *Registry) Get(connectionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[connectionID]
	return sink, ok
}

func (r *Registry) All() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]contract.EventSink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		all = append(all, sink)
	}
	return all
}
