package httpapi

import (
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

const apiKeyScheme = "apiKey"

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
)

// OpenAPIDocument describes the HTTP surface. The document is built once.
func OpenAPIDocument() *openapi3.T {
	openapiOnce.Do(func() {
		openapiDoc = buildOpenAPI()
	})
	return openapiDoc
}

func buildOpenAPI() *openapi3.T {
	entity := entitySchemaSchema()
	errorsSchema := openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())
	messages := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())

	validation := openapi3.NewObjectSchema().
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("errors", errorsSchema).
		WithProperty("messages", messages).
		WithProperty("data", entity).
		WithProperty("viewModel", viewModelSchema())

	session := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("status", openapi3.NewStringSchema().WithEnum("clean", "error")).
		WithProperty("success", openapi3.NewBoolSchema()).
		WithProperty("version", openapi3.NewInt64Schema()).
		WithProperty("state", openapi3.NewObjectSchema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema()).
		WithProperty("updated_at", openapi3.NewDateTimeSchema())

	event := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("event_id", openapi3.NewStringSchema()).
		WithProperty("action", openapi3.NewStringSchema()).
		WithProperty("actor", openapi3.NewStringSchema()).
		WithProperty("from_status", openapi3.NewStringSchema()).
		WithProperty("to_status", openapi3.NewStringSchema()).
		WithProperty("error_count", openapi3.NewIntegerSchema()).
		WithProperty("version", openapi3.NewInt64Schema()).
		WithProperty("occurred_at", openapi3.NewDateTimeSchema())
	events := openapi3.NewObjectSchema().WithProperty("items", openapi3.NewArraySchema().WithItems(event))

	sessionID := openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())
	sessionParams := openapi3.Parameters{{Value: sessionID}}

	paths := openapi3.NewPaths()
	paths.Set("/healthz", &openapi3.PathItem{
		Get: operation("healthz", "Liveness check", nil, responses(
			http.StatusOK, "ok", nil,
			http.StatusServiceUnavailable, "database unavailable", nil)),
	})
	paths.Set("/v1/entities:validate", &openapi3.PathItem{
		Post: operation("validateEntity", "Validate an entity schema",
			openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(entity),
			responses(http.StatusOK, "valid schema and its view-model", validation,
				http.StatusUnprocessableEntity, "mapped validation errors", validation)),
	})
	paths.Set("/v1/sessions", &openapi3.PathItem{
		Post: operation("createSession", "Open an editing session",
			openapi3.NewRequestBody().WithJSONSchema(openapi3.NewObjectSchema()),
			responses(http.StatusCreated, "session", session)),
	})
	paths.Set("/v1/sessions/{id}", &openapi3.PathItem{
		Parameters: sessionParams,
		Get:        operation("getSession", "Get a session", nil, responses(http.StatusOK, "session", session)),
		Delete: operation("deleteSession", "Delete a session", nil,
			responses(http.StatusOK, "deletion result", openapi3.NewObjectSchema().WithProperty("deleted", openapi3.NewBoolSchema()))),
	})
	paths.Set("/v1/sessions/{id}/schema", &openapi3.PathItem{
		Parameters: sessionParams,
		Put: operation("validateSession", "Validate a schema within a session",
			openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(entity),
			responses(http.StatusOK, "session after a successful attempt", session,
				http.StatusUnprocessableEntity, "session after a failed attempt", session)),
	})
	paths.Set("/v1/sessions/{id}/reset", &openapi3.PathItem{
		Parameters: sessionParams,
		Post:       operation("resetSession", "Reset a session to its initial input", nil, responses(http.StatusOK, "session", session)),
	})
	paths.Set("/v1/sessions/{id}/events", &openapi3.PathItem{
		Parameters: sessionParams,
		Get:        operation("sessionEvents", "List session history, newest first", nil, responses(http.StatusOK, "events", events)),
	})

	for path, item := range paths.Map() {
		if !strings.HasPrefix(path, "/v1/sessions") {
			continue
		}
		for _, op := range item.Operations() {
			op.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(apiKeyScheme))
		}
	}

	components := openapi3.NewComponents()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		apiKeyScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewSecurityScheme().
			WithType("apiKey").
			WithIn("header").
			WithName("X-API-Key").
			WithDescription("Authorization: Bearer <key> is accepted too")},
	}

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "entitygen",
			Version: "1.0.0",
		},
		Paths:      paths,
		Components: &components,
	}
}

func operation(id, summary string, body *openapi3.RequestBody, resps *openapi3.Responses) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	if body != nil {
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}
	op.Responses = resps
	return op
}

// responses takes (status, description, schema) triples. A nil schema means
// no body.
func responses(triples ...any) *openapi3.Responses {
	var opts []openapi3.NewResponsesOption
	for i := 0; i+2 < len(triples); i += 3 {
		status := triples[i].(int)
		resp := openapi3.NewResponse().WithDescription(triples[i+1].(string))
		if schema, ok := triples[i+2].(*openapi3.Schema); ok && schema != nil {
			resp = resp.WithJSONSchema(schema)
		}
		opts = append(opts, openapi3.WithStatus(status, &openapi3.ResponseRef{Value: resp}))
	}
	opts = append(opts, openapi3.WithName("default", openapi3.NewResponse().WithDescription("error").
		WithJSONSchema(openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema()))))
	return openapi3.NewResponses(opts...)
}

func entitySchemaSchema() *openapi3.Schema {
	property := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("nullable", openapi3.NewBoolSchema()).
		WithProperty("length", openapi3.NewIntegerSchema().WithMin(1).WithMax(math.MaxInt32))
	property.Required = []string{"type"}

	primary := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("strategy", openapi3.NewStringSchema().WithEnum("uuid", "increment"))
	primary.Required = []string{"name", "type", "strategy"}

	s := openapi3.NewObjectSchema().
		WithProperty("entityName", openapi3.NewStringSchema()).
		WithProperty("tableName", openapi3.NewStringSchema()).
		WithProperty("primaryKey", primary).
		WithProperty("properties", openapi3.NewObjectSchema().WithAdditionalProperties(property))
	s.Required = []string{"entityName", "tableName", "primaryKey", "properties"}
	return s
}

func viewModelSchema() *openapi3.Schema {
	field := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("storageType", openapi3.NewStringSchema()).
		WithProperty("targetType", openapi3.NewStringSchema().WithEnum("string", "number", "Date", "boolean", "any")).
		WithProperty("length", openapi3.NewIntegerSchema()).
		WithProperty("nullable", openapi3.NewBoolSchema())

	primary := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("strategy", openapi3.NewStringSchema()).
		WithProperty("targetType", openapi3.NewStringSchema().WithEnum("string", "number"))

	return openapi3.NewObjectSchema().
		WithProperty("entityName", openapi3.NewStringSchema()).
		WithProperty("tableName", openapi3.NewStringSchema()).
		WithProperty("primary", primary).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(field))
}
