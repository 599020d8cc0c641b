package eventlog

import (
	"context"
	"fmt"

	"github.com/io-da/query"
)

// GenericQueryHandler answers one query type with a read model, usually
// backed by projection state.
type GenericQueryHandler[T query.Query, R ReadModel] interface {
	HandleQuery(ctx context.Context, qry T) (R, error)
}

// GenericQueryHandlerFunc adapts a function to GenericQueryHandler.
type GenericQueryHandlerFunc[T query.Query, R ReadModel] func(ctx context.Context, qry T) (R, error)

func (f GenericQueryHandlerFunc[T, R]) HandleQuery(ctx context.Context, qry T) (R, error) {
	return f(ctx, qry)
}

// QueryProvider dispatches queries from an io-da/query bus to handlers
// registered by query type.
type QueryProvider interface {
	query.Handler
	RegisterHandler(qry query.Query, handler GenericQueryHandler[query.Query, ReadModel])
}

type queryProvider struct {
	handlers map[string]GenericQueryHandler[query.Query, ReadModel]
}

// NewQueryProvider creates an empty provider. Register it on a query bus to
// serve the read side.
func NewQueryProvider() QueryProvider {
	return &queryProvider{
		handlers: make(map[string]GenericQueryHandler[query.Query, ReadModel]),
	}
}

// RegisterHandler registers a handler under the type name of qry. Panics on
// a duplicate registration, mirroring how projections reject duplicate
// names.
func (t *queryProvider) RegisterHandler(qry query.Query, handler GenericQueryHandler[query.Query, ReadModel]) {
	queryType := TypeName(qry)
	if _, ok := t.handlers[queryType]; ok {
		panic("duplicate query handler: " + queryType)
	}
	t.handlers[queryType] = handler
}

// Handle implements query.Handler.
func (t *queryProvider) Handle(ctx context.Context, qry query.Query, res *query.Result) error {
	provider, exists := t.handlers[TypeName(qry)]
	if !exists {
		return fmt.Errorf("unknown query type %s: %w", TypeName(qry), ErrHandlerNotFound)
	}

	result, err := provider.HandleQuery(ctx, qry)
	if err != nil {
		return err
	}

	res.Add(result)
	res.Done()
	return nil
}
