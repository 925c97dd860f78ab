package builder

import (
	"fmt"
	"maps"
	"slices"

	"github.com/qobs-build/qjit/internal/msg"
)

// Address is the raw address of a symbol inside a loaded library.
// Its call signature is a contract between the code generator and the caller;
// nothing here checks it.
type Address uintptr

// UnitSymbols records which symbols a source unit contributed to the library
type UnitSymbols struct {
	Path  string
	Tag   any
	Names []string
}

// Artifact is an opened shared library together with its verified symbol table.
// It owns the library handle; addresses must not be used after Close.
type Artifact struct {
	path    string
	handle  uintptr
	symbols map[string]Address
	units   []UnitSymbols
	closed  bool
}

// Open loads the built shared object and resolves every declared symbol.
// Lookup failures and duplicate names are all collected before Open fails.
func (p *Plan) Open() (*Artifact, error) {
	if p.state != StateBuilt {
		return nil, &StateError{Op: "open", Want: StateBuilt, Got: p.state}
	}

	path := p.SharedObjectPath()
	if err := isReadable(path); err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}

	handle, err := dlopen(path)
	if err != nil {
		return nil, &LoadError{Path: path, Msg: err.Error()}
	}

	a := &Artifact{
		path:    path,
		handle:  handle,
		symbols: make(map[string]Address),
		units:   make([]UnitSymbols, 0, len(p.units)),
	}

	var details []string
	for _, u := range p.units {
		a.units = append(a.units, UnitSymbols{Path: u.Path(), Tag: u.Tag, Names: u.SymbolNames()})
		for _, s := range u.Symbols {
			if _, dup := a.symbols[s.Name]; dup {
				details = append(details, fmt.Sprintf("%s: duplicate symbol %q", u.Filename(), s.Name))
				continue
			}
			addr, err := dlsym(handle, s.Name)
			if err != nil {
				details = append(details, fmt.Sprintf("%s: %v", u.Filename(), err))
				continue
			}
			if addr == 0 {
				details = append(details, fmt.Sprintf("%s: symbol %q resolved to null", u.Filename(), s.Name))
				continue
			}
			a.symbols[s.Name] = Address(addr)
		}
	}

	if len(details) > 0 {
		if err := dlclose(handle); err != nil {
			msg.Warn("failed to close %s: %v", path, err)
		}
		return nil, &SymbolErrors{Details: details}
	}

	p.state = StateOpened
	msg.Info("opened %s with %d symbol(s)", path, len(a.symbols))
	return a, nil
}

func (a *Artifact) Path() string { return a.path }

// Lookup returns the address of a declared symbol
func (a *Artifact) Lookup(name string) (Address, error) {
	if a.closed {
		return 0, ErrClosed
	}
	addr, ok := a.symbols[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSymbolNotFound, name)
	}
	return addr, nil
}

// Bind points the function variable fptr (a pointer to a func value) at a declared
// symbol. The function type must match the symbol's real C signature.
func (a *Artifact) Bind(name string, fptr any) error {
	addr, err := a.Lookup(name)
	if err != nil {
		return err
	}
	return bindFunc(fptr, uintptr(addr))
}

// Symbols returns a copy of the symbol table
func (a *Artifact) Symbols() map[string]Address { return maps.Clone(a.symbols) }

// Names returns the resolved symbol names in sorted order
func (a *Artifact) Names() []string { return slices.Sorted(maps.Keys(a.symbols)) }

// Units returns the per-unit symbol records in plan order
func (a *Artifact) Units() []UnitSymbols { return slices.Clone(a.units) }

// Close releases the library handle. Calling it more than once is a no-op.
func (a *Artifact) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.symbols = nil
	return dlclose(a.handle)
}
