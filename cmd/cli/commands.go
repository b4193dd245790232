package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/keshon/argconv/internal/commands"
	"github.com/keshon/argconv/internal/convert"
	botcmd "github.com/keshon/argconv/pkg/cmd"
)

func buildInspectCmd(opts *rootOptions) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "inspect [command]",
		Short: "List registered commands with their argument converters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return inspectOne(cmd.OutOrStdout(), e, args[0])
			}
			return inspectAll(cmd.OutOrStdout(), e, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print converter keys")
	return cmd
}

func inspectAll(out io.Writer, e *env, verbose bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCONVENTION\tUSAGE")
	for _, c := range e.registry.GetAll() {
		_, dc, err := e.command(c.Name())
		if err != nil {
			return err
		}
		d := dc.Dispatcher()
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name(), d.Convention(), commands.Usage(d))
		if verbose {
			for i, conv := range d.Converters() {
				fmt.Fprintf(w, "\t%d\t%s\n", i+1, conv.Key())
			}
		}
	}
	return w.Flush()
}

func inspectOne(out io.Writer, e *env, name string) error {
	c, dc, err := e.command(name)
	if err != nil {
		return err
	}
	d := dc.Dispatcher()
	fmt.Fprintf(out, "name:        %s\n", c.Name())
	if aliased, ok := botcmd.Root(c).(botcmd.Aliased); ok && len(aliased.Aliases()) > 0 {
		fmt.Fprintf(out, "aliases:     %s\n", strings.Join(aliased.Aliases(), ", "))
	}
	fmt.Fprintf(out, "description: %s\n", c.Description())
	fmt.Fprintf(out, "convention:  %s\n", d.Convention())
	fmt.Fprintf(out, "usage:       %s\n", strings.TrimSpace(c.Name()+" "+commands.Usage(d)))
	if p := d.Parser(); p != nil {
		fmt.Fprintf(out, "needs guild: %t\n", p.NeedsGuild())
		fmt.Fprintf(out, "signature:   %s\n", p.Key())
	}
	for i, conv := range d.Converters() {
		fmt.Fprintf(out, "  %d. %-8s flags=%s arity=%s default=%s\n",
			i+1, conv.Type(), conv.Flags(), conv.Arity(), conv.Default().Repr())
	}
	return nil
}

type invokeOptions struct {
	command string
	dm      bool
	timeout time.Duration
}

func (o *invokeOptions) bind(c *cobra.Command) {
	c.Flags().StringVarP(&o.command, "command", "c", "", "Command name or alias")
	c.Flags().BoolVar(&o.dm, "dm", false, "Parse as a direct message, without the fixture guild")
	c.Flags().DurationVar(&o.timeout, "timeout", 10*time.Second, "Give up after this long")
	_ = c.MarkFlagRequired("command")
}

func buildParseCmd(opts *rootOptions) *cobra.Command {
	inv := &invokeOptions{}
	cmd := &cobra.Command{
		Use:   "parse --command NAME [content]",
		Short: "Parse content the way a command would and print the values",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, dc, err := e.command(inv.command)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), inv.timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			content := strings.Join(args, " ")
			d := dc.Dispatcher()
			switch d.Convention() {
			case convert.ConventionNoArgs:
				fmt.Fprintln(out, "(takes no arguments)")
				return nil
			case convert.ConventionRawContent:
				fmt.Fprintf(out, "1. %s\n", describe(content))
				return nil
			}
			ok, values := d.Parser().Parse(e.request(ctx, inv.dm).Conv, content)
			for i, v := range values {
				fmt.Fprintf(out, "%d. %s\n", i+1, describe(v))
			}
			if !ok {
				return fmt.Errorf("could not parse argument %d", len(values)+1)
			}
			return nil
		},
	}
	inv.bind(cmd)
	return cmd
}

func buildRunCmd(opts *rootOptions) *cobra.Command {
	inv := &invokeOptions{}
	cmd := &cobra.Command{
		Use:   "run --command NAME [content]",
		Short: "Run a command and print its replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.jobs.StopAll()
			c, _, err := e.command(inv.command)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), inv.timeout)
			defer cancel()
			return c.Run(ctx, &botcmd.Invocation{
				Content: strings.Join(args, " "),
				Data:    e.request(ctx, inv.dm),
			})
		},
	}
	inv.bind(cmd)
	return cmd
}

// describe renders a parsed value for the terminal.
func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return fmt.Sprintf("%q", x)
	case *discordgo.User:
		return fmt.Sprintf("user %s (%s)", x.Username, x.ID)
	case *discordgo.Member:
		if x.User == nil {
			return "member <unknown>"
		}
		return fmt.Sprintf("member %s (%s)", x.User.Username, x.User.ID)
	case *discordgo.Role:
		return fmt.Sprintf("role %s (%s)", x.Name, x.ID)
	case *discordgo.Channel:
		return fmt.Sprintf("channel #%s (%s)", x.Name, x.ID)
	case *discordgo.Guild:
		return fmt.Sprintf("guild %s (%s)", x.Name, x.ID)
	case *discordgo.Emoji:
		return fmt.Sprintf("emoji :%s: (%s)", x.Name, x.ID)
	case time.Duration:
		return "duration " + x.String()
	case convert.RelativeDuration:
		return "relative " + x.String()
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = describe(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}
