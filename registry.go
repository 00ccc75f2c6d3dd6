package keyshare

import "sync"

// registry tracks every live Handle by store name, purely for bookkeeping:
// LiveHandles counts and Close deregistration. It never deduplicates —
// Open always builds a fresh Handle, the same way the original native
// module hands every caller its own JS-visible wrapper onto a named shared
// region. Grounded on the globalRegistry sync.Map + a separate registryMu
// guarding membership changes pairing in
// _examples/other_examples/calvinalkan-agent-task__slotcache.go.
var registry sync.Map // map[string][]*Handle

var registryMu sync.Mutex

func registerHandle(name string, h *Handle) {
	registryMu.Lock()
	defer registryMu.Unlock()

	existing, _ := registry.Load(name)
	handles, _ := existing.([]*Handle)
	registry.Store(name, append(handles, h))
}

func deregisterHandle(name string, h *Handle) {
	registryMu.Lock()
	defer registryMu.Unlock()

	existing, ok := registry.Load(name)
	if !ok {
		return
	}
	handles := existing.([]*Handle)
	for i, candidate := range handles {
		if candidate == h {
			handles = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(handles) == 0 {
		registry.Delete(name)
		return
	}
	registry.Store(name, handles)
}

// LiveHandles reports how many open handles currently exist for name,
// across the whole process.
func LiveHandles(name string) int {
	existing, ok := registry.Load(name)
	if !ok {
		return 0
	}
	return len(existing.([]*Handle))
}
