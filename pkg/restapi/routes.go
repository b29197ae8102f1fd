package restapi

import (
	"regexp"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// RestRouteManager keeps track of the route groups that were added to the API.
type RestRouteManager struct {
	echo   *echo.Echo
	routes map[string]struct{}
	mutex  syncutils.RWMutex
}

// NewRestRouteManager creates a new RestRouteManager for the given echo instance.
func NewRestRouteManager(e *echo.Echo) *RestRouteManager {
	return &RestRouteManager{
		echo:   e,
		routes: make(map[string]struct{}),
	}
}

// AddRoute adds a route group below /api.
func (r *RestRouteManager) AddRoute(route string) *echo.Group {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.routes[route] = struct{}{}

	return r.echo.Group("/api/" + route)
}

// Routes returns the sorted route groups.
func (r *RestRouteManager) Routes() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	routes := make([]string, 0, len(r.routes))
	for route := range r.routes {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	return routes
}

// CompileRouteAsRegex compiles a route that may contain * wildcards. Routes starting with ^ are raw regular expressions.
func CompileRouteAsRegex(route string) *regexp.Regexp {
	r := route

	if !strings.HasPrefix(route, "^") {
		r = regexp.QuoteMeta(route)
		r = strings.ReplaceAll(r, `\*`, "(.*?)")
		r += "$"
	}

	reg, err := regexp.Compile(r)
	if err != nil {
		return nil
	}

	return reg
}

func CompileRoutesAsRegexes(routes []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, len(routes))
	for i, route := range routes {
		reg := CompileRouteAsRegex(route)
		if reg == nil {
			return nil, ierrors.Errorf("invalid route in config: %s", route)
		}
		regexes[i] = reg
	}

	return regexes, nil
}

// ExposedRoutesMiddleware rejects every request whose path matches none of the exposed routes.
func ExposedRoutesMiddleware(exposedRoutes []*regexp.Regexp) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			loweredPath := strings.ToLower(c.Request().URL.Path)

			for _, reg := range exposedRoutes {
				if reg.MatchString(loweredPath) {
					return next(c)
				}
			}

			return echo.ErrForbidden
		}
	}
}
