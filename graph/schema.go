package graph

// StateSchema defines how a node's returned update is merged into the
// current state.
type StateSchema[S any] interface {
	Update(current, update S) (S, error)
}

// SchemaFunc adapts a function to StateSchema.
type SchemaFunc[S any] func(current, update S) (S, error)

// Update calls f.
func (f SchemaFunc[S]) Update(current, update S) (S, error) {
	return f(current, update)
}

// OverwriteSchema replaces the state with each node's result. It is the
// behaviour of a graph without a schema.
func OverwriteSchema[S any]() StateSchema[S] {
	return SchemaFunc[S](func(_, update S) (S, error) {
		return update, nil
	})
}
