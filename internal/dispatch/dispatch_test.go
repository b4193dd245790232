package dispatch

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/parser"
	"github.com/keshon/argconv/pkg/cmd"
)

var (
	alice = &discordgo.User{ID: "1000001", Username: "alice"}
	bob   = &discordgo.User{ID: "1000002", Username: "bob"}
)

type users map[string]*discordgo.User

func (u users) LookupByID(kind convert.Kind, _ convert.Scope, id string) any {
	if kind != convert.KindUser {
		return nil
	}
	for _, user := range u {
		if user.ID == id {
			return user
		}
	}
	return nil
}

func (u users) LookupByName(kind convert.Kind, _ convert.Scope, name string) any {
	if user, ok := u[name]; ok && kind == convert.KindUser {
		return user
	}
	return nil
}

func (u users) FetchRemote(context.Context, convert.Kind, convert.Scope, string) (any, error) {
	return nil, nil
}

var lookup = users{"alice": alice, "bob": bob}

func guildCtx() *convert.Context {
	return convert.NewContext(context.Background(), lookup, "9000001", "9000002", alice.ID)
}

func dmCtx() *convert.Context {
	return convert.NewContext(context.Background(), lookup, "", "9000003", alice.ID)
}

func newCompiler() *parser.Compiler {
	return parser.NewCompiler(convert.NewRegistry(), nil)
}

func mustWrap(t *testing.T, c *parser.Compiler, handler any, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := Wrap(c, handler, opts...)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	return d
}

func TestInvokeNoArgs(t *testing.T) {
	var got string
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message) error {
		got = m.Content
		return nil
	})
	if d.Convention() != convert.ConventionNoArgs || d.Parser() != nil {
		t.Fatalf("convention = %v", d.Convention())
	}
	if err := d.Invoke(guildCtx(), &discordgo.Message{Content: "!ping"}, "whatever follows"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "!ping" {
		t.Errorf("handler saw %q", got)
	}
}

func TestInvokeRawContent(t *testing.T) {
	var got string
	handler := func(cc *convert.Context, m *discordgo.Message, text string) error {
		got = text
		return nil
	}

	d := mustWrap(t, newCompiler(), handler)
	if d.Convention() != convert.ConventionRawContent {
		t.Fatalf("convention = %v", d.Convention())
	}
	if err := d.Invoke(guildCtx(), nil, `  "not" tokenized  `); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != `  "not" tokenized  ` {
		t.Errorf("handler saw %q", got)
	}

	withDefault := mustWrap(t, newCompiler(), handler, WithDefault(0, "nothing"))
	if err := withDefault.Invoke(guildCtx(), nil, "   "); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "nothing" {
		t.Errorf("blank content gave %q, want the default", got)
	}
}

func TestInvokeCompiled(t *testing.T) {
	type call struct {
		target *discordgo.User
		count  int64
	}
	var (
		calls    []call
		failures [][]any
	)
	d := mustWrap(t, newCompiler(),
		func(cc *convert.Context, m *discordgo.Message, target *discordgo.User, count int64) error {
			calls = append(calls, call{target, count})
			return nil
		},
		WithDefault(1, 1),
		WithFailure(func(cc *convert.Context, m *discordgo.Message, content string, partial []any) error {
			failures = append(failures, partial)
			return nil
		}),
	)

	for _, content := range []string{"<@1000001> 5", "<@1000001>", "bob 3"} {
		if err := d.Invoke(guildCtx(), nil, content); err != nil {
			t.Fatalf("Invoke(%q): %v", content, err)
		}
	}
	want := []call{{alice, 5}, {alice, 1}, {bob, 3}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %+v, want %+v", calls, want)
	}

	if err := d.Invoke(dmCtx(), nil, ""); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(calls) != 3 || len(failures) != 1 || len(failures[0]) != 0 {
		t.Errorf("empty content: calls %d, failures %v", len(calls), failures)
	}
}

func TestInvokeFailureWithoutHandler(t *testing.T) {
	called := false
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, n int) error {
		called = true
		return nil
	}, WithAnnotation(0, convert.TypeInt))
	if err := d.Invoke(guildCtx(), nil, "many"); err != nil {
		t.Errorf("Invoke = %v, want nil", err)
	}
	if called {
		t.Error("handler called on a failed parse")
	}
}

func TestInvokeHandlerError(t *testing.T) {
	boom := errors.New("boom")
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, who *discordgo.User) error {
		return boom
	})
	if err := d.Invoke(guildCtx(), nil, "alice"); !errors.Is(err, boom) {
		t.Errorf("Invoke = %v, want the handler error", err)
	}
}

func TestInvokeCoercionError(t *testing.T) {
	r := convert.NewRegistry()
	c := parser.NewCompiler(r, nil)
	conv, err := r.NewConverter(convert.TypeInt, convert.WithDefaultSource("'abc'"))
	if err != nil {
		t.Fatal(err)
	}
	d := mustWrap(t, c, func(cc *convert.Context, m *discordgo.Message, n int) error { return nil },
		WithAnnotation(0, conv))
	if err := d.Invoke(guildCtx(), nil, ""); err == nil || !strings.Contains(err.Error(), "argument 1") {
		t.Errorf("Invoke = %v, want a coercion error", err)
	}
}

func TestInvokeVariadic(t *testing.T) {
	var got []string
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, words ...string) error {
		got = words
		return nil
	})
	if a := d.Converters()[0].Arity(); a != (convert.Arity{}) {
		t.Fatalf("arity = %v, want variadic", a)
	}

	tests := []struct {
		content string
		want    []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{`one "two three"`, []string{"one", "two three"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			if err := d.Invoke(dmCtx(), nil, tt.content); err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("words = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvokeSliceAnnotation(t *testing.T) {
	var (
		gotUsers []*discordgo.User
		gotRest  string
	)
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, targets []*discordgo.User, reason string) error {
		gotUsers, gotRest = targets, reason
		return nil
	})
	if err := d.Invoke(guildCtx(), nil, "alice <@1000002> for being loud"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !reflect.DeepEqual(gotUsers, []*discordgo.User{alice, bob}) || gotRest != "for being loud" {
		t.Errorf("got %v, %q", gotUsers, gotRest)
	}
}

func TestGuard(t *testing.T) {
	calls := 0
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message) error {
		calls++
		return nil
	}, WithGuard("guild !== ''", false))

	if d.Convention() != convert.ConventionCompiled || len(d.Converters()) != 1 {
		t.Fatalf("convention = %v, converters = %v", d.Convention(), d.Converters())
	}
	_ = d.Invoke(dmCtx(), nil, "")
	_ = d.Invoke(guildCtx(), nil, "")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	never := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, text string) error {
		calls++
		return nil
	}, WithGuard("true", true))
	_ = never.Invoke(guildCtx(), nil, "anything")
	if calls != 1 {
		t.Error("inverted true guard let the handler run")
	}
}

type greeter struct {
	seen     []string
	confused int
}

func (g *greeter) Greet(cc *convert.Context, m *discordgo.Message, who *discordgo.User) error {
	g.seen = append(g.seen, who.Username)
	return nil
}

func (g *greeter) Confused(cc *convert.Context, m *discordgo.Message, content string, partial []any) error {
	g.confused++
	return nil
}

func TestBind(t *testing.T) {
	d := mustWrap(t, newCompiler(), (*greeter).Greet, Method(), WithFailure((*greeter).Confused))
	if err := d.Invoke(guildCtx(), nil, "alice"); !errors.Is(err, ErrUnbound) {
		t.Fatalf("unbound Invoke = %v", err)
	}
	if _, err := NewCommand("greet", "", d); !errors.Is(err, ErrUnbound) {
		t.Errorf("NewCommand on an unbound dispatcher = %v", err)
	}

	g := &greeter{}
	bound, err := d.Bind(g)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.Parser() != d.Parser() {
		t.Error("binding recompiled the parser")
	}
	_ = bound.Invoke(guildCtx(), nil, "alice")
	_ = bound.Invoke(guildCtx(), nil, "nobody")
	if !reflect.DeepEqual(g.seen, []string{"alice"}) || g.confused != 1 {
		t.Errorf("seen %v, confused %d", g.seen, g.confused)
	}
	if d.Bound() {
		t.Error("Bind modified the original dispatcher")
	}

	if _, err := d.Bind("not a greeter"); err == nil {
		t.Error("Bind accepted a foreign owner")
	}
	plain := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message) error { return nil })
	if _, err := plain.Bind(g); err == nil {
		t.Error("Bind accepted a plain function")
	}
}

func TestWrapSharesParsers(t *testing.T) {
	c := newCompiler()
	first := mustWrap(t, c, func(cc *convert.Context, m *discordgo.Message, who *discordgo.User, n int) error { return nil },
		WithDefault(1, 1))
	second := mustWrap(t, c, func(_ *convert.Context, _ *discordgo.Message, target *discordgo.User, count int) error { return nil },
		WithDefault(1, 1))
	if first.Parser() != second.Parser() {
		t.Error("structurally identical handlers compiled separate parsers")
	}
	if c.Len() != 1 {
		t.Errorf("compiler holds %d parsers, want 1", c.Len())
	}
}

func TestWithParams(t *testing.T) {
	var got int
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, n int) error {
		got = n
		return nil
	}, WithParams([]convert.ParameterInfo{
		{Name: "ctx"},
		{Name: "message"},
		{Name: "limit", Annotation: convert.TypeInt, HasDefault: true, Default: 10},
	}))
	if err := d.Invoke(guildCtx(), nil, ""); err != nil || got != 10 {
		t.Errorf("Invoke = %v, n = %d", err, got)
	}
}

func TestWrapErrors(t *testing.T) {
	r := convert.NewRegistry()
	c := parser.NewCompiler(r, nil)
	ranged, _ := r.NewConverter(convert.TypeUser, convert.WithRange(1, 3))
	defaulted, _ := r.NewConverter(convert.TypeInt, convert.WithDefault(5))

	userHandler := func(cc *convert.Context, m *discordgo.Message, who *discordgo.User) error { return nil }
	intHandler := func(cc *convert.Context, m *discordgo.Message, n int) error { return nil }

	tests := []struct {
		name    string
		handler any
		opts    []Option
		want    error
	}{
		{"not a function", 42, nil, convert.ErrUnsupportedSignature},
		{"no error result", func(cc *convert.Context, m *discordgo.Message) {}, nil, convert.ErrUnsupportedSignature},
		{"swapped reserved", func(m *discordgo.Message, cc *convert.Context) error { return nil }, nil, convert.ErrUnsupportedSignature},
		{"too few parameters", func(cc *convert.Context) error { return nil }, nil, convert.ErrUnsupportedSignature},
		{"unknown go type", func(cc *convert.Context, m *discordgo.Message, f float32) error { return nil }, nil, convert.ErrUnknownType},
		{"unknown profile", intHandler, []Option{WithAnnotation(0, "float")}, convert.ErrUnknownType},
		{"type mismatch", intHandler, []Option{WithAnnotation(0, convert.TypeUser)}, convert.ErrUnsupportedSignature},
		{"ranged into scalar", userHandler, []Option{WithAnnotation(0, ranged)}, convert.ErrUnsupportedSignature},
		{"conflicting default", intHandler, []Option{WithAnnotation(0, defaulted), WithDefault(0, 3)}, convert.ErrConflictingDefault},
		{"default out of range", intHandler, []Option{WithDefault(1, 3)}, convert.ErrUnsupportedSignature},
		{"bad guard", intHandler, []Option{WithGuard("1 +", false)}, convert.ErrGeneration},
		{"bad default source", intHandler, []Option{WithAnnotation(0, mustSource(t, r, "))"))}, convert.ErrGeneration},
		{"bad failure handler", intHandler, []Option{WithFailure(func() error { return nil })}, convert.ErrUnsupportedSignature},
		{"params length", intHandler, []Option{WithParams([]convert.ParameterInfo{{Name: "ctx"}, {Name: "m"}})}, convert.ErrUnsupportedSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Wrap(c, tt.handler, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Wrap = %v, want %v", err, tt.want)
			}
		})
	}
}

func mustSource(t *testing.T, r *convert.Registry, src string) *convert.Converter {
	t.Helper()
	conv, err := r.NewConverter(convert.TypeInt, convert.WithDefaultSource(src))
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

type ctxKey struct{}

func TestCommandRun(t *testing.T) {
	var seen context.Context
	d := mustWrap(t, newCompiler(), func(cc *convert.Context, m *discordgo.Message, who *discordgo.User) error {
		seen = cc.Context()
		return nil
	})
	c, err := NewCommand("whois", "Shows a user", d, "who")
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	r := cmd.NewRegistry()
	r.MustRegister(c)
	if r.Get("who") != c {
		t.Fatal("alias not registered")
	}

	ctx := context.WithValue(context.Background(), ctxKey{}, "run")
	inv := &cmd.Invocation{Content: "alice", Data: &Request{Conv: guildCtx(), Msg: &discordgo.Message{}}}
	if err := c.Run(ctx, inv); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen == nil || seen.Value(ctxKey{}) != "run" {
		t.Error("handler did not see the run context")
	}

	if err := c.Run(ctx, &cmd.Invocation{Content: "alice", Data: "nope"}); err == nil {
		t.Error("Run accepted foreign invocation data")
	}
}
