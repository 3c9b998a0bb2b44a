package fetcher

import (
	"math/rand"
	"net/http"
	"sync"
)

// Identity is one request-identifying header set. Varying it per call keeps
// the upstream from keying all traffic to a single client fingerprint.
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// DefaultIdentities returns the built-in descriptor pool.
func DefaultIdentities() []Identity {
	agents := []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
	ids := make([]Identity, 0, len(agents))
	for _, ua := range agents {
		ids = append(ids, Identity{UserAgent: ua, Headers: browserHeaders})
	}
	return ids
}

// IdentityPool hands out identities pseudo-randomly, never repeating the
// previous pick while alternatives exist. Read-only after construction,
// safe to share across workers.
type IdentityPool struct {
	mu         sync.Mutex
	identities []Identity
	last       int
}

func NewIdentityPool(identities ...Identity) *IdentityPool {
	if len(identities) == 0 {
		identities = DefaultIdentities()
	}
	return &IdentityPool{identities: identities, last: -1}
}

func (p *IdentityPool) Len() int {
	return len(p.identities)
}

// Pick selects the identity for the next call.
func (p *IdentityPool) Pick() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.identities) == 1 {
		p.last = 0
		return p.identities[0]
	}
	i := rand.Intn(len(p.identities))
	for i == p.last {
		i = rand.Intn(len(p.identities))
	}
	p.last = i
	return p.identities[i]
}

// apply sets the identity's headers on a request.
func (id Identity) apply(req *http.Request) {
	req.Header.Set("User-Agent", id.UserAgent)
	for k, v := range id.Headers {
		req.Header.Set(k, v)
	}
}
