package artifact

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Globals every module must define to satisfy the module contract.
const (
	GlobalName    = "module_name"
	GlobalVersion = "module_version"
	GlobalHandler = "handle"
)

// Descriptor identifies an instantiated module.
type Descriptor struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Instance is an instantiated (but not yet activated) artifact: the
// frozen globals produced by running the program's top level.
type Instance struct {
	globals starlark.StringDict
}

// Instantiate runs the program's top level on an isolated thread and
// returns the resulting instance. The artifact does not become active
// as a side effect.
func Instantiate(prog *starlark.Program, moduleName string) (*Instance, error) {
	thread := &starlark.Thread{
		Name: fmt.Sprintf("init:%s", moduleName),
		Print: func(_ *starlark.Thread, _ string) {
			// Module top-level prints are dropped
		},
	}

	globals, err := prog.Init(thread, nil)
	if err != nil {
		return nil, fmt.Errorf("module init failed: %w", err)
	}
	globals.Freeze()

	return &Instance{globals: globals}, nil
}

// Describe extracts the module descriptor from the instance globals.
func (i *Instance) Describe() (Descriptor, error) {
	name, err := stringGlobal(i.globals, GlobalName)
	if err != nil {
		return Descriptor{}, err
	}
	version, err := stringGlobal(i.globals, GlobalVersion)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Name: name, Version: version}, nil
}

// Handler returns the module's handle callable.
func (i *Instance) Handler() (starlark.Callable, error) {
	v, ok := i.globals[GlobalHandler]
	if !ok {
		return nil, core.NewError(core.ErrValidationFailure, "", "module does not define %q", GlobalHandler)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, core.NewError(core.ErrValidationFailure, "", "%q is %s, not callable", GlobalHandler, v.Type())
	}
	return fn, nil
}

// Bind promotes an instance to a Loaded artifact ready for activation.
// It fails if the descriptor or handler is missing.
func (i *Instance) Bind(location string) (*Loaded, error) {
	desc, err := i.Describe()
	if err != nil {
		return nil, err
	}
	handler, err := i.Handler()
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Location:   location,
		Descriptor: desc,
		handler:    handler,
	}, nil
}

// Loaded is a fully checked artifact instance that can be bound to a
// module name. Consumers obtain it only through the reload manager's
// name-keyed lookup, never by holding it across a swap.
type Loaded struct {
	Location   string
	Descriptor Descriptor
	handler    starlark.Callable
}

// Invoke calls the module's handle function on a fresh thread.
func (l *Loaded) Invoke(args ...starlark.Value) (starlark.Value, error) {
	thread := &starlark.Thread{
		Name: fmt.Sprintf("invoke:%s", l.Descriptor.Name),
		Print: func(_ *starlark.Thread, _ string) {
			// Handler prints are dropped
		},
	}
	v, err := starlark.Call(thread, l.handler, starlark.Tuple(args), nil)
	if err != nil {
		return nil, fmt.Errorf("module %s invocation failed: %w", l.Descriptor.Name, err)
	}
	return v, nil
}

func stringGlobal(globals starlark.StringDict, key string) (string, error) {
	v, ok := globals[key]
	if !ok {
		return "", core.NewError(core.ErrValidationFailure, "", "module does not define %q", key)
	}
	s, ok := starlark.AsString(v)
	if !ok || s == "" {
		return "", core.NewError(core.ErrValidationFailure, "", "%q must be a non-empty string", key)
	}
	return s, nil
}
