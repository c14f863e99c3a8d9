package udm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// Scope is the lexical environment a Lambda closes over. It is implemented
// by *env.Frame; the interface lives here so that values can reference
// frames without an import cycle.
type Scope interface {
	// Lookup resolves name through the scope chain.
	Lookup(name string) (Value, error)
	// Extend returns a fresh child scope.
	Extend() Scope
	// Bind sets name in this scope, shadowing any outer binding.
	Bind(name string, v Value)
}

// Lambda is a function value. User lambdas carry their parameters, body and
// captured scope. Native lambdas refer to a registry function by name and
// have no body.
type Lambda struct {
	Params  []string
	Body    types.Node
	Closure Scope
	// Name is the definition name for named functions and the registry name
	// for native lambdas. Anonymous lambdas leave it empty.
	Name   string
	Native bool
}

func (*Lambda) Kind() Kind { return KindLambda }
func (*Lambda) udm()       {}

// Arity returns the number of declared parameters, or -1 for native lambdas
// whose arity is checked by the registry.
func (l *Lambda) Arity() int {
	if l.Native {
		return -1
	}
	return len(l.Params)
}

func (l *Lambda) String() string {
	name := l.Name
	if name == "" {
		name = "lambda"
	}
	if l.Native {
		return fmt.Sprintf("<function %s>", name)
	}
	return fmt.Sprintf("<function %s(%s)>", name, strings.Join(l.Params, ", "))
}

// ErrLambdaValue is returned, wrapped in a *LambdaError, by every boundary
// that cannot represent a function value (serializers, conversions).
var ErrLambdaValue = errors.New("function values cannot be serialized")

// LambdaError reports a function value found at Path.
type LambdaError struct {
	Path string
}

func (e *LambdaError) Error() string {
	if e.Path == "" {
		return ErrLambdaValue.Error()
	}
	return fmt.Sprintf("%s (at %s)", ErrLambdaValue.Error(), e.Path)
}

// Unwrap returns ErrLambdaValue.
func (e *LambdaError) Unwrap() error { return ErrLambdaValue }

// FindLambda returns the path of the first function value inside v, or ""
// when there is none. The root is reported as "$".
func FindLambda(v Value) string {
	return findLambda(v, "$")
}

func findLambda(v Value, path string) string {
	switch v := v.(type) {
	case *Lambda:
		return path
	case *Array:
		var found string
		v.Each(func(i int, el Value) bool {
			found = findLambda(el, fmt.Sprintf("%s[%d]", path, i))
			return found == ""
		})
		return found
	case *Object:
		var found string
		v.Each(func(k string, el Value) bool {
			found = findLambda(el, path+"."+k)
			return found == ""
		})
		return found
	}
	return ""
}
