package gql

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"

	applog "expensetracker/internal/log"
)

const maxBodyBytes = 1 << 20

// Request is the standard GraphQL-over-HTTP payload.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler serves a schema over HTTP. Queries are accepted on GET and POST,
// mutations only on POST.
type Handler struct {
	schema graphql.Schema
	logger *applog.Logger
	now    func() time.Time
}

// NewHandler returns an http.Handler executing requests against schema.
func NewHandler(schema graphql.Schema, logger *applog.Logger) *Handler {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Handler{
		schema: schema,
		logger: logger.WithComponent(applog.ComponentGraphQL),
		now:    time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		req Request
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = requestFromQuery(r)
	case http.MethodPost:
		req, err = requestFromBody(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		h.writeRequestError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err != nil {
		h.writeRequestError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		h.writeRequestError(w, http.StatusBadRequest, "Missing query")
		return
	}

	opType, opName := operationOf(req)
	if r.Method == http.MethodGet && opType == ast.OperationTypeMutation {
		w.Header().Set("Allow", "POST")
		h.writeRequestError(w, http.StatusMethodNotAllowed, "Mutations must be sent with POST")
		return
	}

	ctx := r.Context()
	start := h.now()
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	for i := range result.Errors {
		if result.Errors[i].Extensions == nil {
			result.Errors[i].Extensions = requestError(h.now())
		}
	}

	applog.FromContextOr(ctx, h.logger).WithComponent(applog.ComponentGraphQL).DebugContext(ctx, "GraphQL operation executed",
		applog.FieldGraphQLOp, opName,
		applog.FieldOperation, opType,
		applog.FieldCount, len(result.Errors),
		applog.FieldDuration, h.now().Sub(start).Milliseconds(),
	)

	writeJSON(w, http.StatusOK, result)
}

func requestFromQuery(r *http.Request) (Request, error) {
	q := r.URL.Query()
	req := Request{
		Query:         q.Get("query"),
		OperationName: q.Get("operationName"),
	}
	if raw := q.Get("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
			return Request{}, errors.New("Variables must be a JSON object")
		}
	}
	return req, nil
}

func requestFromBody(w http.ResponseWriter, r *http.Request) (Request, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return Request{}, errors.New("Request body could not be read")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/graphql" {
		return Request{Query: string(body)}, nil
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, errors.New("Request body must be a JSON object")
	}
	return req, nil
}

// operationOf reports the type and name of the operation a request selects.
// Documents that fail to parse yield empty strings; execution reports the
// syntax error.
func operationOf(req Request) (opType, opName string) {
	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return "", ""
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		name := ""
		if op.Name != nil {
			name = op.Name.Value
		}
		if req.OperationName == "" || req.OperationName == name {
			return op.Operation, name
		}
	}
	return "", ""
}

func (h *Handler) writeRequestError(w http.ResponseWriter, status int, message string) {
	ext := requestError(h.now())
	ext["statusCode"] = status
	writeJSON(w, status, graphql.Result{
		Errors: []gqlerrors.FormattedError{{Message: message, Extensions: ext}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
