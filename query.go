package escrowd

import (
	"fmt"
)

// Query modifiers, passed after a "?" in the query path.
const (
	// KeyQueryMod looks up a single key.
	KeyQueryMod = ""
	// PrefixQueryMod returns every key starting with the query data.
	PrefixQueryMod = "prefix"
)

// Model is a key value pair as stored in the state.
type Model struct {
	Key   []byte
	Value []byte
}

func Pair(key, value []byte) Model {
	return Model{Key: key, Value: value}
}

// QueryHandler answers ABCI queries for one path.
type QueryHandler interface {
	Query(db ReadOnlyKVStore, mod string, data []byte) ([]Model, error)
}

// QueryRegister registers the query handlers of an extension.
type QueryRegister func(QueryRouter)

// QueryRouter maps query paths, such as "/escrows", to their handler.
type QueryRouter struct {
	routes map[string]QueryHandler
}

func NewQueryRouter() QueryRouter {
	return QueryRouter{routes: make(map[string]QueryHandler)}
}

// RegisterAll calls every register function with r.
func (r QueryRouter) RegisterAll(regs ...QueryRegister) {
	for _, reg := range regs {
		reg(r)
	}
}

// Register binds h to path. It panics when path is taken.
func (r QueryRouter) Register(path string, h QueryHandler) {
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("query path %q registered twice", path))
	}
	r.routes[path] = h
}

// Handler returns the handler of path, or nil.
func (r QueryRouter) Handler(path string) QueryHandler {
	return r.routes[path]
}
