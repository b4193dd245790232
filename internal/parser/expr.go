package parser

import (
	"context"
	"sync"

	"github.com/dop251/goja"

	"github.com/keshon/argconv/internal/convert"
)

// compileExpr compiles a default source. The source is an expression; it
// sees guild, channel, author and content of the invocation.
func compileExpr(src string) (*goja.Program, error) {
	return goja.Compile("default", "("+src+")", true)
}

// evaluator runs default expressions on pooled runtimes. A goja runtime is
// not safe for concurrent use, so each evaluation borrows its own.
type evaluator struct {
	pool sync.Pool
}

func newEvaluator() *evaluator {
	return &evaluator{pool: sync.Pool{New: func() any { return goja.New() }}}
}

func (e *evaluator) eval(cc *convert.Context, content string, prog *goja.Program) (any, error) {
	ctx := context.Background()
	scope := convert.Scope{}
	author := ""
	if cc != nil {
		ctx = cc.Context()
		scope = cc.Scope()
		author = cc.AuthorID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm := e.pool.Get().(*goja.Runtime)
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
		close(interrupted)
	})
	defer func() {
		// A runtime only goes back to the pool once no interrupt can land on it.
		if !stop() {
			<-interrupted
		}
		vm.ClearInterrupt()
		e.pool.Put(vm)
	}()

	for name, v := range map[string]any{
		"guild":   scope.GuildID,
		"channel": scope.ChannelID,
		"author":  author,
		"content": content,
	} {
		if err := vm.Set(name, v); err != nil {
			return nil, err
		}
	}

	v, err := vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	out := v.Export()
	if n, ok := out.(int64); ok {
		return int(n), nil
	}
	return out, nil
}

// truthy mirrors the usual scripting notion of truth for guard defaults.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}
