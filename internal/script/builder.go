package script

import (
	"context"
	"math"
	"slices"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/cmdbridge/internal/command"
	"github.com/dshills/cmdbridge/internal/deferred"
	"github.com/dshills/cmdbridge/internal/grammar"
	"github.com/dshills/cmdbridge/internal/shell"
)

const builderTypeName = "cmdbridge.builder"

type declKind uint8

const (
	literalDecl declKind = iota
	argumentDecl
)

// decl is a command tree declared by a script. Scripts only describe
// trees; the engine turns them into dispatcher nodes after loading.
type decl struct {
	kind     declKind
	name     string
	argType  grammar.ArgumentType
	path     string
	args     []string
	run      *lua.LFunction
	requires *lua.LFunction
	children []*decl
}

func (d *decl) child(kind declKind, name string, t grammar.ArgumentType) *decl {
	c := &decl{kind: kind, name: name, argType: t, path: d.path, args: slices.Clone(d.args)}
	if kind == argumentDecl {
		c.args = append(c.args, name)
	}
	d.children = append(d.children, c)
	return c
}

// configure returns the builder callback that registers d.
func (rt *runtime) configure(d *decl) func(*shell.Builder) {
	return func(b *shell.Builder) {
		if d.requires != nil {
			deferred.MeetSuspend(b, func(sess *shell.Session) bool {
				return rt.check(d, sess)
			})
		}
		if d.run != nil {
			fn := d.run
			deferred.RunSuspend(b, func(ctx context.Context, sess *shell.Session, args *command.Arguments) error {
				return rt.run(ctx, d, fn, sess, args)
			})
		}
		for _, c := range d.children {
			switch c.kind {
			case literalDecl:
				b.Literal(c.name, rt.configure(c))
			case argumentDecl:
				b.Argument(c.name, c.argType, rt.configure(c))
			}
		}
	}
}

func registerBuilderType(L *lua.LState) {
	mt := L.NewTypeMetatable(builderTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"literal":  builderLiteral,
		"word":     builderArgument(func(*lua.LState) grammar.ArgumentType { return grammar.Word() }),
		"string":   builderArgument(func(*lua.LState) grammar.ArgumentType { return grammar.String() }),
		"greedy":   builderArgument(func(*lua.LState) grammar.ArgumentType { return grammar.Greedy() }),
		"bool":     builderArgument(func(*lua.LState) grammar.ArgumentType { return grammar.Bool() }),
		"int":      builderArgument(intType),
		"double":   builderArgument(doubleType),
		"run":      builderRun,
		"requires": builderRequires,
	}))
}

func newBuilder(L *lua.LState, d *decl) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = d
	L.SetMetatable(ud, L.GetTypeMetatable(builderTypeName))
	return ud
}

func checkBuilder(L *lua.LState) *decl {
	ud := L.CheckUserData(1)
	if d, ok := ud.Value.(*decl); ok {
		return d
	}
	L.ArgError(1, "builder expected")
	return nil
}

// descend calls the optional configure function at idx with a builder
// for c.
func descend(L *lua.LState, idx int, c *decl) {
	if L.GetTop() < idx || L.Get(idx) == lua.LNil {
		return
	}
	fn := L.CheckFunction(idx)
	L.Push(fn)
	L.Push(newBuilder(L, c))
	L.Call(1, 0)
}

// b:literal(name [, fn])
func builderLiteral(L *lua.LState) int {
	d := checkBuilder(L)
	name := L.CheckString(2)
	if !validName(name) {
		L.ArgError(2, "invalid literal "+name)
	}
	descend(L, 3, d.child(literalDecl, name, nil))
	return 0
}

// builderArgument returns b:<type>(name [, opts] [, fn]). typeOf may read
// an options table at index 3.
func builderArgument(typeOf func(L *lua.LState) grammar.ArgumentType) lua.LGFunction {
	return func(L *lua.LState) int {
		d := checkBuilder(L)
		name := L.CheckString(2)
		if !validName(name) {
			L.ArgError(2, "invalid argument name "+name)
		}
		fnIdx := 3
		if _, ok := L.Get(3).(*lua.LTable); ok {
			fnIdx = 4
		}
		descend(L, fnIdx, d.child(argumentDecl, name, typeOf(L)))
		return 0
	}
}

func intType(L *lua.LState) grammar.ArgumentType {
	lo, hi := bounds(L, command.MinInt, command.MaxInt)
	return grammar.Integer(int(lo), int(hi))
}

func doubleType(L *lua.LState) grammar.ArgumentType {
	lo, hi := bounds(L, -math.MaxFloat64, math.MaxFloat64)
	return grammar.Double(lo, hi)
}

// bounds reads {min=, max=} from index 3.
func bounds(L *lua.LState, lo, hi float64) (float64, float64) {
	opts, ok := L.Get(3).(*lua.LTable)
	if !ok {
		return lo, hi
	}
	if v, ok := opts.RawGetString("min").(lua.LNumber); ok {
		lo = float64(v)
	}
	if v, ok := opts.RawGetString("max").(lua.LNumber); ok {
		hi = float64(v)
	}
	if lo > hi {
		L.ArgError(3, "min greater than max")
	}
	return lo, hi
}

// b:run(fn)
func builderRun(L *lua.LState) int {
	d := checkBuilder(L)
	fn := L.CheckFunction(2)
	if d.run != nil {
		L.RaiseError("%s already has a run function", d.name)
	}
	d.run = fn
	return 0
}

// b:requires(fn)
func builderRequires(L *lua.LState) int {
	d := checkBuilder(L)
	d.requires = L.CheckFunction(2)
	return 0
}
