package action

import (
	"fmt"
	"strings"
	"sync"

	"github.com/viant/x"
)

// Registry holds the action services available to plan steps, together
// with a registry of their input/output go types.
type Registry struct {
	types    *x.Registry
	services map[string]Service
	mux      sync.RWMutex
}

// Types returns the go type registry.
func (r *Registry) Types() *x.Registry {
	return r.types
}

// Lookup returns a service by name, or nil when absent.
func (r *Registry) Lookup(name string) Service {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.services[name]
}

// Register registers a service and the go types of its method signatures.
func (r *Registry) Register(service Service) {
	r.mux.Lock()
	defer r.mux.Unlock()
	for _, signature := range service.Methods() {
		if signature.Input != nil {
			r.types.Register(x.NewType(signature.Input))
		}
		if signature.Output != nil {
			r.types.Register(x.NewType(signature.Output))
		}
	}
	r.services[service.Name()] = service
}

// Resolve splits a plan step action "service.method" and returns the
// executable together with its signature.
func (r *Registry) Resolve(name string) (Executable, *Signature, error) {
	index := strings.LastIndex(name, ".")
	if index == -1 {
		return nil, nil, fmt.Errorf("invalid action %q, expected service.method", name)
	}
	serviceName, methodName := name[:index], name[index+1:]
	service := r.Lookup(serviceName)
	if service == nil {
		return nil, nil, fmt.Errorf("unknown action service %q", serviceName)
	}
	signature := service.Methods().Lookup(methodName)
	if signature == nil {
		return nil, nil, NewMethodNotFoundError(name)
	}
	executable, err := service.Method(methodName)
	if err != nil {
		return nil, nil, err
	}
	return executable, signature, nil
}

// NewRegistry creates a new action registry.
func NewRegistry(goTypes ...*x.Type) *Registry {
	ret := &Registry{
		types:    x.NewRegistry(),
		services: make(map[string]Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
