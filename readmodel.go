package eventlog

// ReadModel marks a query-side data model, typically the state maintained by
// a Projection. The core imposes no shape on read models; they are returned
// as-is through the query provider.
type ReadModel interface {
}
