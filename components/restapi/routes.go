package restapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// RouteHealth is the route for querying the health of the node.
	RouteHealth = "/health"

	// RouteRoutes is the route for getting the route groups of the API.
	RouteRoutes = "/api/routes"
)

type RoutesResponse struct {
	Routes []string `json:"routes"`
}

func setupRoutes() {
	deps.Echo.GET(RouteHealth, func(c echo.Context) error {
		if deps.Executor.CurrentEpochStore().IsAlive() {
			return c.NoContent(http.StatusOK)
		}

		return c.NoContent(http.StatusServiceUnavailable)
	})

	deps.Echo.GET(RouteRoutes, func(c echo.Context) error {
		return c.JSON(http.StatusOK, &RoutesResponse{
			Routes: deps.RestRouteManager.Routes(),
		})
	})
}
