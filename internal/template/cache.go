package template

import "sync"

// The AST cache memoizes parsed templates keyed by fully-qualified statement
// id (or, for ad-hoc session SQL, by the template text itself). Entries live
// for the process lifetime unless cleared; readers never observe a partially
// parsed entry.
var cacheMutex sync.RWMutex
var cache = make(map[string][]Node)

// Cached returns the parsed AST for source under key, parsing and storing it
// on first use.
func Cached(key, source string) []Node {
	cacheMutex.RLock()
	nodes, found := cache[key]
	cacheMutex.RUnlock()
	if found {
		return nodes
	}

	nodes = NewParser().Parse(source)

	cacheMutex.Lock()
	// Another caller may have parsed the same source meanwhile; both results
	// are equivalent, keep the existing one for pointer stability.
	if prior, found := cache[key]; found {
		nodes = prior
	} else {
		cache[key] = nodes
	}
	cacheMutex.Unlock()
	return nodes
}

// Lookup returns the cached AST for key without parsing.
func Lookup(key string) ([]Node, bool) {
	cacheMutex.RLock()
	nodes, found := cache[key]
	cacheMutex.RUnlock()
	return nodes, found
}

// Clear drops every cached AST. Intended for test resets alongside clearing
// the statement registry.
func Clear() {
	cacheMutex.Lock()
	cache = make(map[string][]Node)
	cacheMutex.Unlock()
}
