// Package proxy forwards requests addressed to a linked project to the
// project's live address.
package proxy

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"linkctl/internal/project"
	"linkctl/pkg/logging"
)

const projectKey = "linkctl.project"

var proxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "linkctl_proxy_requests_total",
	Help: "Requests forwarded by the link proxy by outcome",
}, []string{"outcome"})

// ProjectLookup finds live projects by ID.
type ProjectLookup interface {
	Get(id string) (*project.Project, bool)
}

// Proxy resolves the target on every request and keeps no per-request state.
type Proxy struct {
	projects  ProjectLookup
	transport http.RoundTripper
}

// New returns a proxy resolving targets through projects.
func New(projects ProjectLookup) *Proxy {
	return &Proxy{projects: projects, transport: http.DefaultTransport}
}

// Register mounts the proxy under prefix as <prefix>/:projectID/*path.
func (p *Proxy) Register(r gin.IRouter, prefix string) {
	r.Any(prefix+"/:projectID/*path", p.RequireProject(), p.Handle)
}

// RequireProject aborts with 404 when :projectID is not a known project.
func (p *Proxy) RequireProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("projectID")
		proj, ok := p.projects.Get(id)
		if !ok {
			proxyRequests.WithLabelValues("unknown_project").Inc()
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project " + id + " not found"})
			return
		}
		c.Set(projectKey, proj)
		c.Next()
	}
}

// Target returns the address requests for proj are forwarded to.
func Target(proj *project.Project) string {
	host := proj.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(proj.InternalPort))
}

// Handle forwards the request with the routing prefix stripped. Websocket
// upgrades are passed through.
func (p *Proxy) Handle(c *gin.Context) {
	proj := c.MustGet(projectKey).(*project.Project)
	if proj.InternalPort == 0 {
		proxyRequests.WithLabelValues("no_port").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "project " + proj.ID + " exposes no port"})
		return
	}
	target := Target(proj)
	rawPath := forwardedPath(c)
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		path = c.Param("path")
	}

	rp := &httputil.ReverseProxy{
		Director: func(request *http.Request) {
			request.URL.Scheme = "http"
			request.URL.Host = target
			request.URL.Path = path
			request.URL.RawPath = rawPath
			request.Host = target
			// Query and headers are preserved from the original request.
		},
		Transport: p.transport,
		ModifyResponse: func(*http.Response) error {
			proxyRequests.WithLabelValues("forwarded").Inc()
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			proxyRequests.WithLabelValues("upstream_error").Inc()
			logging.Warn("Proxy", "Forwarding %s %s to project %s at %s failed: %v", r.Method, path, proj.ID, target, err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	logging.Debug("Proxy", "Forwarding %s %s to project %s at %s", c.Request.Method, path, proj.ID, target)
	rp.ServeHTTP(c.Writer, c.Request)
}

// forwardedPath returns the request path below the route prefix and project
// ID in its escaped form, so encoded separators such as %2F reach the target
// unchanged.
func forwardedPath(c *gin.Context) string {
	skip := strings.Count(strings.TrimSuffix(c.FullPath(), "/*path"), "/")
	parts := strings.SplitN(c.Request.URL.EscapedPath(), "/", skip+2)
	if len(parts) < skip+2 {
		return "/"
	}
	return "/" + parts[skip+1]
}
