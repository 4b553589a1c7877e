// Package router implements the BleepStore HTTP route multiplexer: a
// single POST / RPC dispatcher keyed by X-Amz-Target, plus the ancillary
// /health, /metrics, and OpenAPI-documented endpoints.
package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "github.com/bleepstore/bleepstore/internal/errors"
	"github.com/bleepstore/bleepstore/internal/secretengine"
)

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Body HealthBody
}

// handlerFunc decodes a JSON request body into an operation-specific input,
// invokes the engine, and returns a JSON-encodable output (or an error).
type handlerFunc func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error)

var operations map[string]handlerFunc

func init() {
	operations = map[string]handlerFunc{
		"CreateSecret": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.CreateSecretInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.CreateSecret(ctx, in)
		},
		"PutSecretValue": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.PutSecretValueInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.PutSecretValue(ctx, in)
		},
		"UpdateSecret": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.UpdateSecretInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.UpdateSecret(ctx, in)
		},
		"DeleteSecret": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.DeleteSecretInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.DeleteSecret(ctx, in)
		},
		"RestoreSecret": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.RestoreSecretInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.RestoreSecret(ctx, in)
		},
		"GetSecretValue": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.GetSecretValueInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.GetSecretValue(ctx, in)
		},
		"DescribeSecret": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.DescribeSecretInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.DescribeSecret(ctx, in)
		},
		"UpdateSecretVersionStage": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.UpdateSecretVersionStageInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.UpdateSecretVersionStage(ctx, in)
		},
		"TagResource": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.TagResourceInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.TagResource(ctx, in)
		},
		"UntagResource": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.UntagResourceInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.UntagResource(ctx, in)
		},
		"ListSecrets": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.ListSecretsInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.ListSecrets(ctx, in)
		},
		"ListSecretVersionIds": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.ListSecretVersionIdsInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.ListSecretVersionIds(ctx, in)
		},
		"BatchGetSecretValue": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.BatchGetSecretValueInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.BatchGetSecretValue(ctx, in)
		},
		"GetRandomPassword": func(ctx context.Context, e *secretengine.Engine, body []byte) (any, error) {
			var in secretengine.GetRandomPasswordInput
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apierrors.ErrInvalidParameterException.WithMessage(err.Error())
			}
			return e.GetRandomPassword(ctx, in)
		},
	}
}

// New builds the chi router: the RPC dispatcher at POST /, a Huma-documented
// /health, and /metrics for Prometheus scraping.
func New(engine *secretengine.Engine) chi.Router {
	r := chi.NewMux()

	humaConfig := huma.DefaultConfig("BleepStore Secrets Manager API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(r, humaConfig)

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the BleepStore secrets manager server.",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		return &HealthOutput{Body: HealthBody{Status: "ok"}}, nil
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Post("/", dispatch(engine))

	return r
}

// dispatch reads X-Amz-Target to select an operation, decodes the request
// body, invokes the engine, and serializes the result (or error) as JSON —
// the single RPC-style endpoint every SecretsManager operation is served
// from (spec.md §5).
func dispatch(engine *secretengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.Header.Get("X-Amz-Target")
		op := operationForTarget(target)

		handler, ok := operations[op]
		if !ok {
			apierrors.ErrNotImplemented.WithMessage("unknown or missing X-Amz-Target operation").WriteJSON(w)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			apierrors.ErrInvalidParameterException.WithMessage("failed to read request body").WriteJSON(w)
			return
		}
		if len(body) == 0 {
			body = []byte("{}")
		}

		out, err := handler(r.Context(), engine, body)
		if err != nil {
			apiErr := apierrors.AsAPIError(err)
			slog.Warn("operation failed", "operation", op, "kind", apiErr.Kind)
			apiErr.WriteJSON(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			slog.Error("failed to encode response", "operation", op, "error", err)
		}
	}
}

// operationForTarget extracts "CreateSecret" out of
// "secretsmanager.CreateSecret" (and tolerates a bare operation name).
func operationForTarget(target string) string {
	for i := len(target) - 1; i >= 0; i-- {
		if target[i] == '.' {
			return target[i+1:]
		}
	}
	return target
}
