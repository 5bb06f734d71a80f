// Package containerid serves the container identity probe on the root path.
package containerid

import (
	"context"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/container-id/internal/platform/logging"
)

const (
	// EnvVar names the environment variable holding the container identity.
	EnvVar = "CONTAINER_ID"
	// Unknown is reported when EnvVar is unset or empty.
	Unknown = "Unknown"

	contentTypeText = "text/plain; charset=utf-8"
)

// Lookup reads an environment variable. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// Resolve returns the container identity, falling back to Unknown.
// A nil lookup reads the process environment.
func Resolve(lookup Lookup) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvVar); ok && v != "" {
		return v
	}
	return Unknown
}

// Register wires GET / into the API. The variable is read on every request.
func Register(api huma.API, lookup Lookup) {
	h := &handler{lookup: lookup}
	huma.Register(api, huma.Operation{
		OperationID: "get-container-id",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Report the container identity",
		Tags:        []string{"Probe"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Plain-text container identity",
				Content: map[string]*huma.MediaType{
					"text/plain": {Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{"Container ID: abc123"}}},
				},
			},
		},
	}, h.get)
}

type handler struct {
	lookup Lookup
}

func (h *handler) get(ctx context.Context, _ *struct{}) (*GetOutput, error) {
	id := Resolve(h.lookup)
	applog.LogInfo(ctx, "Sending container ID: "+id, zap.String("containerId", id))
	return &GetOutput{
		ContentType: contentTypeText,
		Body:        []byte(Body(id)),
	}, nil
}

// Body formats the response text for id.
func Body(id string) string {
	return "Container ID: " + id
}
