package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"

	"github.com/tubescribe/tubescribe/model"
	"github.com/tubescribe/tubescribe/pipeline"
	"github.com/tubescribe/tubescribe/storage"
)

// TenantHeader names the requesting tenant. Absent means the default
// tenant.
const TenantHeader = "X-Tenant"

// TenantResolver maps a request to a tenant context. Injected so tests
// and alternative auth schemes can replace the header lookup.
type TenantResolver func(r *http.Request) (model.TenantContext, error)

// HeaderResolver resolves the tenant named by the X-Tenant header.
func HeaderResolver(tenants storage.TenantStore) TenantResolver {
	return func(r *http.Request) (model.TenantContext, error) {
		name := r.Header.Get(TenantHeader)
		if name == "" {
			name = storage.DefaultTenantName
		}
		t, err := tenants.GetTenantByName(r.Context(), name)
		if err != nil {
			return model.TenantContext{}, fmt.Errorf("tenant %q: %w", name, err)
		}
		return model.TenantContext{TenantID: t.ID, Superuser: t.Superuser}, nil
	}
}

type Server struct {
	apis    map[string]http.Handler
	resolve TenantResolver
	logger  *slog.Logger
}

func NewServer(store storage.Store, orchestrator *pipeline.Orchestrator, resolve TenantResolver, logger *slog.Logger) *Server {
	return &Server{
		apis: map[string]http.Handler{
			"video": NewVideoAPI(store, logger),
			"batch": NewBatchAPI(orchestrator, logger),
		},
		resolve: resolve,
		logger:  logger,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	originalPath := r.URL.Path
	rec := httptest.NewRecorder() // records the response to be able to mix writing headers and content

	w.Header().Add("Content-Type", "application/json")

	head, tail := ShiftPath(r.URL.Path)
	if len(head) == 0 {
		Index(rec)
		returnResponse(w, rec)
		return
	}

	api, ok := s.apis[head]
	switch {
	case !ok:
		Error(rec, http.StatusNotFound, "Not found", fmt.Errorf("%s is not a valid path", r.URL.Path))
	default:
		tc, err := s.resolve(r)
		if err != nil {
			Error(rec, http.StatusUnauthorized, "Unknown tenant", err)
			break
		}
		r = withTenant(r, tc)
		r.URL.Path = tail
		api.ServeHTTP(rec, r)
	}

	returnResponse(w, rec)
	s.logger.Info("request served", "path", originalPath, "status", rec.Code)
}

func returnResponse(w http.ResponseWriter, rec *httptest.ResponseRecorder) {
	w.WriteHeader(rec.Code)
	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.Write(rec.Body.Bytes())
}

// ShiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
// See https://blog.merovius.de/posts/2017-06-18-how-not-to-use-an-http-router/
func ShiftPath(p string) (string, string) {
	p = path.Clean("/" + p)

	// restore iri prefixes that might be mangled by path.Clean
	for k, v := range map[string]string{
		"http:/":  "http://",
		"https:/": "https://",
	} {
		p = strings.Replace(p, k, v, -1)
	}

	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}
