package resource

import (
	"io"
	"strings"
	"sync"
)

// ClassLoader exposes one shared, read-only-after-initialization view over
// every .class resource reachable from the project root plus any
// additional JAR paths, keyed by internal (slash-separated) class name. It
// never leaks into the serialized analysis output; callers hold it only
// for the duration of a single run.
type ClassLoader struct {
	mu        sync.RWMutex
	classes   map[string]Locator // internal name -> locator
	keys      map[string]string  // internal name -> resolverKey
	resolvers map[string]Resolver
	cache     *BlobCache
}

// NewClassLoader builds an empty loader backed by cache for byte caching.
func NewClassLoader(cache *BlobCache) *ClassLoader {
	return &ClassLoader{
		classes:   make(map[string]Locator),
		keys:      make(map[string]string),
		resolvers: make(map[string]Resolver),
		cache:     cache,
	}
}

// Register associates resolverKey with resolver so Load can later fetch
// bytes for any locator produced while indexing that resolver's entries.
func (cl *ClassLoader) Register(resolverKey string, resolver Resolver) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.resolvers[resolverKey] = resolver
}

// Index records that internalName (e.g. "com/acme/Foo") is backed by loc,
// discoverable via resolverKey.
func (cl *ClassLoader) Index(internalName, resolverKey string, loc Locator) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.classes[internalName] = loc
	cl.keys[internalName] = resolverKey
}

// BlobCache exposes the loader's backing cache, primarily so callers can
// wire its hit/miss counters into observability. Returns nil if the loader
// was built without one.
func (cl *ClassLoader) BlobCache() *BlobCache { return cl.cache }

// Has reports whether internalName is known to the loader.
func (cl *ClassLoader) Has(internalName string) bool {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	_, ok := cl.classes[internalName]

	return ok
}

// Load returns the raw bytes of the .class file for internalName,
// consulting the blob cache before falling back to the backing resolver.
func (cl *ClassLoader) Load(internalName string) ([]byte, error) {
	cl.mu.RLock()
	loc, ok := cl.classes[internalName]
	resolverKey := cl.keys[internalName]
	cl.mu.RUnlock()

	if !ok {
		return nil, ErrClassNotFound(internalName)
	}

	if cl.cache != nil {
		if raw, hit := cl.cache.Get(loc.ID()); hit {
			return raw, nil
		}
	}

	cl.mu.RLock()
	resolver := cl.resolvers[resolverKey]
	cl.mu.RUnlock()

	if resolver == nil {
		return nil, ErrClassNotFound(internalName)
	}

	rc, err := resolver.Open(loc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	if cl.cache != nil {
		cl.cache.Put(loc.ID(), raw)
	}

	return raw, nil
}

// BinaryNameToFqn converts a JVM internal class name ("com/acme/Foo") to a
// Java fully-qualified name ("com.acme.Foo").
func BinaryNameToFqn(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

type classNotFoundError string

func (e classNotFoundError) Error() string { return "class not found: " + string(e) }

// ErrClassNotFound builds the error Load returns for an unknown class name.
func ErrClassNotFound(internalName string) error { return classNotFoundError(internalName) }
