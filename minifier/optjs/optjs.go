// Package optjs is an AST-level JavaScript pre-optimizer. It rewrites
// function declarations and anonymous function expressions into arrow form,
// folds the declare-then-return pattern into a direct expression, and turns
// references to the magic arguments binding into an explicit rest parameter.
// The heavy lifting of minification proper is left to the external JS
// minifier that runs afterwards; these rewrites just put the code into a
// shape it compresses better from.
package optjs

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

var (
	// ErrParse is returned when the input is not parseable as a module.
	ErrParse = errors.New("javascript parse error")
	// ErrTransform is returned when a rewrite precondition is violated.
	ErrTransform = errors.New("javascript transform error")
)

// argumentsReplacement is the rest parameter that stands in for the magic
// arguments binding after the rewrite.
const argumentsReplacement = "__minifier_arguments"

// Optimize parses src as a module, applies the rewrites and re-emits it.
// It is idempotent on its own output.
func Optimize(src string) (string, error) {
	ast, err := js.Parse(parse.NewInputString(src), js.Options{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := optimizeStmts(ast.List); err != nil {
		return "", err
	}
	return emit(ast), nil
}

// jsWriter is satisfied by every AST node; it writes the node back out as
// valid JavaScript.
type jsWriter interface {
	JS(w io.Writer)
}

// emit writes the transformed module back out, one top-level statement per
// line. A separating semicolon is added where the node writer didn't leave
// one, so statement boundaries survive re-parsing.
func emit(ast *js.AST) string {
	var sb strings.Builder
	for _, stmt := range ast.List {
		if _, ok := stmt.(*js.EmptyStmt); ok {
			continue
		}
		stmt.(jsWriter).JS(&sb)
		if s := sb.String(); s != "" && s[len(s)-1] != ';' {
			sb.WriteByte(';')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func varName(v *js.Var) string {
	for v.Link != nil {
		v = v.Link
	}
	return string(v.Data)
}

// optimizeStmts transforms a statement list in place, children before
// parents.
func optimizeStmts(list []js.IStmt) error {
	for i, stmt := range list {
		switch st := stmt.(type) {
		case *js.FuncDecl:
			if err := optimizeStmts(st.Body.List); err != nil {
				return err
			}
			repl, err := funcDeclToConst(st)
			if err != nil {
				return err
			}
			if repl != nil {
				list[i] = repl
			}
		case *js.ExportStmt:
			if st.Decl != nil {
				if fd, ok := st.Decl.(*js.FuncDecl); ok && fd.Name != nil {
					if err := optimizeStmts(fd.Body.List); err != nil {
						return err
					}
					repl, err := funcDeclToConst(fd)
					if err != nil {
						return err
					}
					if repl != nil {
						st.Decl = repl.(*js.VarDecl)
					}
				} else {
					decl, err := optimizeExpr(st.Decl)
					if err != nil {
						return err
					}
					st.Decl = decl
				}
			}
		case *js.BlockStmt:
			if err := optimizeStmts(st.List); err != nil {
				return err
			}
		case *js.ExprStmt:
			v, err := optimizeExpr(st.Value)
			if err != nil {
				return err
			}
			st.Value = v
		case *js.ReturnStmt:
			if st.Value != nil {
				v, err := optimizeExpr(st.Value)
				if err != nil {
					return err
				}
				st.Value = v
			}
		case *js.ThrowStmt:
			v, err := optimizeExpr(st.Value)
			if err != nil {
				return err
			}
			st.Value = v
		case *js.VarDecl:
			if err := optimizeBindings(st.List); err != nil {
				return err
			}
		case *js.IfStmt:
			if err := optimizeCond(&st.Cond); err != nil {
				return err
			}
			if err := optimizeSubStmt(&st.Body); err != nil {
				return err
			}
			if st.Else != nil {
				if err := optimizeSubStmt(&st.Else); err != nil {
					return err
				}
			}
		case *js.WhileStmt:
			if err := optimizeCond(&st.Cond); err != nil {
				return err
			}
			if err := optimizeSubStmt(&st.Body); err != nil {
				return err
			}
		case *js.DoWhileStmt:
			if err := optimizeCond(&st.Cond); err != nil {
				return err
			}
			if err := optimizeSubStmt(&st.Body); err != nil {
				return err
			}
		case *js.ForStmt:
			if st.Init != nil {
				v, err := optimizeExpr(st.Init)
				if err != nil {
					return err
				}
				st.Init = v
			}
			if st.Cond != nil {
				if err := optimizeCond(&st.Cond); err != nil {
					return err
				}
			}
			if st.Post != nil {
				v, err := optimizeExpr(st.Post)
				if err != nil {
					return err
				}
				st.Post = v
			}
			if st.Body != nil {
				if err := optimizeStmts(st.Body.List); err != nil {
					return err
				}
			}
		case *js.ForInStmt:
			if err := optimizeCond(&st.Value); err != nil {
				return err
			}
			if st.Body != nil {
				if err := optimizeStmts(st.Body.List); err != nil {
					return err
				}
			}
		case *js.ForOfStmt:
			if err := optimizeCond(&st.Value); err != nil {
				return err
			}
			if st.Body != nil {
				if err := optimizeStmts(st.Body.List); err != nil {
					return err
				}
			}
		case *js.SwitchStmt:
			if err := optimizeCond(&st.Init); err != nil {
				return err
			}
			for c := range st.List {
				if st.List[c].Cond != nil {
					if err := optimizeCond(&st.List[c].Cond); err != nil {
						return err
					}
				}
				if err := optimizeStmts(st.List[c].List); err != nil {
					return err
				}
			}
		case *js.TryStmt:
			if st.Body != nil {
				if err := optimizeStmts(st.Body.List); err != nil {
					return err
				}
			}
			if st.Catch != nil {
				if err := optimizeStmts(st.Catch.List); err != nil {
					return err
				}
			}
			if st.Finally != nil {
				if err := optimizeStmts(st.Finally.List); err != nil {
					return err
				}
			}
		case *js.LabelledStmt:
			if err := optimizeSubStmt(&st.Value); err != nil {
				return err
			}
		default:
			// classes, imports, branch statements and the rest carry no
			// function expressions we rewrite
		}
	}
	return nil
}

func optimizeSubStmt(stmt *js.IStmt) error {
	one := []js.IStmt{*stmt}
	if err := optimizeStmts(one); err != nil {
		return err
	}
	*stmt = one[0]
	return nil
}

func optimizeCond(e *js.IExpr) error {
	v, err := optimizeExpr(*e)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

func optimizeBindings(list []js.BindingElement) error {
	for i := range list {
		if list[i].Default == nil {
			continue
		}
		v, err := optimizeExpr(list[i].Default)
		if err != nil {
			return err
		}
		list[i].Default = v
	}
	return nil
}

// optimizeExpr transforms an expression tree, children before parents, and
// returns the (possibly replaced) node.
func optimizeExpr(e js.IExpr) (js.IExpr, error) {
	switch ex := e.(type) {
	case *js.FuncDecl:
		if err := optimizeStmts(ex.Body.List); err != nil {
			return nil, err
		}
		if ex.Name != nil {
			// a named function expression keeps its self-reference binding
			return e, nil
		}
		arrow, err := functionToArrow(ex)
		if err != nil {
			return nil, err
		}
		if arrow != nil {
			return arrow, nil
		}
	case *js.ArrowFunc:
		if err := optimizeStmts(ex.Body.List); err != nil {
			return nil, err
		}
		foldRedundantBinding(ex)
	case *js.GroupExpr:
		v, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		ex.X = v
	case *js.BinaryExpr:
		x, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		y, err := optimizeExpr(ex.Y)
		if err != nil {
			return nil, err
		}
		ex.X, ex.Y = x, y
	case *js.UnaryExpr:
		v, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		ex.X = v
	case *js.CondExpr:
		cond, err := optimizeExpr(ex.Cond)
		if err != nil {
			return nil, err
		}
		x, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		y, err := optimizeExpr(ex.Y)
		if err != nil {
			return nil, err
		}
		ex.Cond, ex.X, ex.Y = cond, x, y
	case *js.CallExpr:
		x, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		ex.X = x
		if err := optimizeArgs(&ex.Args); err != nil {
			return nil, err
		}
	case *js.NewExpr:
		x, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		ex.X = x
		if ex.Args != nil {
			if err := optimizeArgs(ex.Args); err != nil {
				return nil, err
			}
		}
	case *js.DotExpr:
		x, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		ex.X = x
	case *js.IndexExpr:
		x, err := optimizeExpr(ex.X)
		if err != nil {
			return nil, err
		}
		y, err := optimizeExpr(ex.Y)
		if err != nil {
			return nil, err
		}
		ex.X, ex.Y = x, y
	case *js.ArrayExpr:
		for i := range ex.List {
			if ex.List[i].Value == nil {
				continue
			}
			v, err := optimizeExpr(ex.List[i].Value)
			if err != nil {
				return nil, err
			}
			ex.List[i].Value = v
		}
	case *js.ObjectExpr:
		for i := range ex.List {
			if ex.List[i].Value == nil {
				continue
			}
			v, err := optimizeExpr(ex.List[i].Value)
			if err != nil {
				return nil, err
			}
			ex.List[i].Value = v
		}
	case *js.TemplateExpr:
		for i := range ex.List {
			v, err := optimizeExpr(ex.List[i].Expr)
			if err != nil {
				return nil, err
			}
			ex.List[i].Expr = v
		}
	case *js.CommaExpr:
		for i := range ex.List {
			v, err := optimizeExpr(ex.List[i])
			if err != nil {
				return nil, err
			}
			ex.List[i] = v
		}
	case *js.VarDecl:
		if err := optimizeBindings(ex.List); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func optimizeArgs(args *js.Args) error {
	for i := range args.List {
		v, err := optimizeExpr(args.List[i].Value)
		if err != nil {
			return err
		}
		args.List[i].Value = v
	}
	return nil
}

// funcDeclToConst rewrites `function f() {...}` into `const f = () => {...}`.
// It returns nil when the function cannot take arrow form.
func funcDeclToConst(f *js.FuncDecl) (js.IStmt, error) {
	if f.Name == nil {
		return nil, nil
	}
	arrow, err := functionToArrow(f)
	if err != nil || arrow == nil {
		return nil, err
	}
	return &js.VarDecl{
		TokenType: js.ConstToken,
		List: []js.BindingElement{
			{Binding: f.Name, Default: arrow},
		},
	}, nil
}

// functionToArrow converts a function body to arrow form: the arguments
// binding is rewritten to an explicit rest parameter first, then the
// parameters and body are carried over, then the declare-then-return body is
// folded when possible. Generators cannot take arrow form and are left
// untouched.
func functionToArrow(f *js.FuncDecl) (*js.ArrowFunc, error) {
	if f.Generator {
		return nil, nil
	}

	rest := &js.Var{Data: []byte(argumentsReplacement), Decl: js.ArgumentDecl}
	seen := renameArgumentsInStmts(f.Body.List, rest)

	params := f.Params
	if seen {
		if len(params.List) > 0 || params.Rest != nil {
			return nil, fmt.Errorf("%w: arguments referenced in a function with parameters", ErrTransform)
		}
		params = js.Params{Rest: rest}
	}

	arrow := &js.ArrowFunc{
		Async:  f.Async,
		Params: params,
		Body:   f.Body,
	}
	foldRedundantBinding(arrow)
	return arrow, nil
}

// foldRedundantBinding rewrites the two-statement body
// `const x = E; return F(x);` into `return F(E);`. The declaration must be a
// single const declarator with a plain identifier name, and the call must
// take exactly that identifier as its only, non-spread argument.
func foldRedundantBinding(arrow *js.ArrowFunc) {
	list := arrow.Body.List
	if len(list) != 2 {
		return
	}
	decl, ok := list[0].(*js.VarDecl)
	if !ok || decl.TokenType != js.ConstToken || len(decl.List) != 1 {
		return
	}
	bound, ok := decl.List[0].Binding.(*js.Var)
	if !ok || decl.List[0].Default == nil {
		return
	}
	ret, ok := list[1].(*js.ReturnStmt)
	if !ok || ret.Value == nil {
		return
	}
	call, ok := ret.Value.(*js.CallExpr)
	if !ok || len(call.Args.List) != 1 || call.Args.List[0].Rest {
		return
	}
	arg, ok := call.Args.List[0].Value.(*js.Var)
	if !ok || varName(arg) != varName(bound) {
		return
	}
	call.Args.List[0].Value = decl.List[0].Default
	arrow.Body.List = []js.IStmt{&js.ReturnStmt{Value: call}}
}
