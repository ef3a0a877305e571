// Package binding fills the parameters of Go functions and struct records
// from the named arguments of a matched command.
//
// A CallSpec pairs a function value with a declared parameter table. Func
// and Method derive the table from the function type plus a list of names,
// one per parameter; the empty name marks the source slot, which receives
// the command source instead of an argument:
//
//	spec, err := binding.Func(func(p *Player, x, y int) error { ... }, "", "x", "y")
//	spec = spec.Optional("y", 64)
//	_, err = binding.Call(ctx, spec, cmdContext)
//
// Variadic, generic and nil-able parameters are refused. Every failure is a
// typed error wrapping one of the package sentinels, so callers can use
// errors.Is and errors.As.
//
// Construct fills a struct record instead of calling a function:
//
//	type Teleport struct {
//	    X    int
//	    Y    int    `arg:"y,optional"`
//	    Note string `arg:"-"`
//	}
//	tp, err := binding.Construct[Teleport](cmdContext)
package binding
