package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Data is the liveness payload.
type Data struct {
	Message string `json:"message" doc:"Health status message" example:"healthy"`
}

// Output wraps Data as the response body.
type Output struct {
	Body Data
}

// Register wires GET /health. It does not touch the container identity and logs nothing
// beyond the access log, so frequent orchestrator probes stay quiet.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Probe"},
	}, func(context.Context, *struct{}) (*Output, error) {
		return &Output{Body: Data{Message: "healthy"}}, nil
	})
}
