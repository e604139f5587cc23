package optjs

import "github.com/tdewolff/parse/v2/js"

// The rename pass walks a function body looking for references to the magic
// arguments binding and swaps each occurrence for the replacement variable.
// Nested functions have their own arguments binding, so the walk stops at
// function declarations, function expressions and methods; arrow bodies are
// walked through because arrows share the enclosing binding.

func renameArgumentsInStmts(list []js.IStmt, repl *js.Var) bool {
	seen := false
	for _, stmt := range list {
		switch st := stmt.(type) {
		case *js.BlockStmt:
			seen = renameArgumentsInStmts(st.List, repl) || seen
		case *js.ExprStmt:
			st.Value = renameArgumentsExpr(st.Value, repl, &seen)
		case *js.ReturnStmt:
			if st.Value != nil {
				st.Value = renameArgumentsExpr(st.Value, repl, &seen)
			}
		case *js.ThrowStmt:
			st.Value = renameArgumentsExpr(st.Value, repl, &seen)
		case *js.VarDecl:
			renameArgumentsBindings(st.List, repl, &seen)
		case *js.IfStmt:
			st.Cond = renameArgumentsExpr(st.Cond, repl, &seen)
			seen = renameArgumentsInStmts([]js.IStmt{st.Body}, repl) || seen
			if st.Else != nil {
				seen = renameArgumentsInStmts([]js.IStmt{st.Else}, repl) || seen
			}
		case *js.WhileStmt:
			st.Cond = renameArgumentsExpr(st.Cond, repl, &seen)
			seen = renameArgumentsInStmts([]js.IStmt{st.Body}, repl) || seen
		case *js.DoWhileStmt:
			st.Cond = renameArgumentsExpr(st.Cond, repl, &seen)
			seen = renameArgumentsInStmts([]js.IStmt{st.Body}, repl) || seen
		case *js.ForStmt:
			if st.Init != nil {
				st.Init = renameArgumentsExpr(st.Init, repl, &seen)
			}
			if st.Cond != nil {
				st.Cond = renameArgumentsExpr(st.Cond, repl, &seen)
			}
			if st.Post != nil {
				st.Post = renameArgumentsExpr(st.Post, repl, &seen)
			}
			if st.Body != nil {
				seen = renameArgumentsInStmts(st.Body.List, repl) || seen
			}
		case *js.ForInStmt:
			st.Value = renameArgumentsExpr(st.Value, repl, &seen)
			if st.Body != nil {
				seen = renameArgumentsInStmts(st.Body.List, repl) || seen
			}
		case *js.ForOfStmt:
			st.Value = renameArgumentsExpr(st.Value, repl, &seen)
			if st.Body != nil {
				seen = renameArgumentsInStmts(st.Body.List, repl) || seen
			}
		case *js.SwitchStmt:
			st.Init = renameArgumentsExpr(st.Init, repl, &seen)
			for c := range st.List {
				if st.List[c].Cond != nil {
					st.List[c].Cond = renameArgumentsExpr(st.List[c].Cond, repl, &seen)
				}
				seen = renameArgumentsInStmts(st.List[c].List, repl) || seen
			}
		case *js.TryStmt:
			if st.Body != nil {
				seen = renameArgumentsInStmts(st.Body.List, repl) || seen
			}
			if st.Catch != nil {
				seen = renameArgumentsInStmts(st.Catch.List, repl) || seen
			}
			if st.Finally != nil {
				seen = renameArgumentsInStmts(st.Finally.List, repl) || seen
			}
		case *js.LabelledStmt:
			seen = renameArgumentsInStmts([]js.IStmt{st.Value}, repl) || seen
		}
	}
	return seen
}

func renameArgumentsBindings(list []js.BindingElement, repl *js.Var, seen *bool) {
	for i := range list {
		if list[i].Default != nil {
			list[i].Default = renameArgumentsExpr(list[i].Default, repl, seen)
		}
	}
}

// renameArgumentsExpr returns the expression with every reference to
// arguments replaced, setting *seen when it replaced one.
func renameArgumentsExpr(e js.IExpr, repl *js.Var, seen *bool) js.IExpr {
	switch ex := e.(type) {
	case *js.Var:
		if varName(ex) == "arguments" {
			*seen = true
			return repl
		}
	case *js.ArrowFunc:
		// arrows share the enclosing function's arguments binding
		*seen = renameArgumentsInStmts(ex.Body.List, repl) || *seen
	case *js.FuncDecl:
		// own arguments binding, stop
	case *js.GroupExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
	case *js.BinaryExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
		ex.Y = renameArgumentsExpr(ex.Y, repl, seen)
	case *js.UnaryExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
	case *js.CondExpr:
		ex.Cond = renameArgumentsExpr(ex.Cond, repl, seen)
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
		ex.Y = renameArgumentsExpr(ex.Y, repl, seen)
	case *js.CallExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
		for i := range ex.Args.List {
			ex.Args.List[i].Value = renameArgumentsExpr(ex.Args.List[i].Value, repl, seen)
		}
	case *js.NewExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
		if ex.Args != nil {
			for i := range ex.Args.List {
				ex.Args.List[i].Value = renameArgumentsExpr(ex.Args.List[i].Value, repl, seen)
			}
		}
	case *js.DotExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
	case *js.IndexExpr:
		ex.X = renameArgumentsExpr(ex.X, repl, seen)
		ex.Y = renameArgumentsExpr(ex.Y, repl, seen)
	case *js.ArrayExpr:
		for i := range ex.List {
			if ex.List[i].Value != nil {
				ex.List[i].Value = renameArgumentsExpr(ex.List[i].Value, repl, seen)
			}
		}
	case *js.ObjectExpr:
		for i := range ex.List {
			if ex.List[i].Value != nil {
				ex.List[i].Value = renameArgumentsExpr(ex.List[i].Value, repl, seen)
			}
		}
	case *js.TemplateExpr:
		for i := range ex.List {
			ex.List[i].Expr = renameArgumentsExpr(ex.List[i].Expr, repl, seen)
		}
	case *js.CommaExpr:
		for i := range ex.List {
			ex.List[i] = renameArgumentsExpr(ex.List[i], repl, seen)
		}
	case *js.VarDecl:
		renameArgumentsBindings(ex.List, repl, seen)
	}
	return e
}
