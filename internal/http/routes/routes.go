package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/container-id/internal/http/containerid"
	"github.com/janisto/container-id/internal/http/health"
)

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API, lookup containerid.Lookup) {
	containerid.Register(api, lookup)
	health.Register(api)
}
