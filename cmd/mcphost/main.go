// Command mcphost loads MCP servers and drives them from the command line:
// it manages the friendly-name registry, lists tool catalogs, invokes tools,
// and generates typed Go stubs.
//
// Usage:
//
//	mcphost register <name> <command...>
//	mcphost unregister <name>
//	mcphost list
//	mcphost tools <server>
//	mcphost call <server> <tool> [key=value...]
//	mcphost stub <server> [-pkg name]
//	mcphost demo
//
// <server> is a registered name or a launch command; key=value arguments are
// decoded as JSON when possible and treated as strings otherwise.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mcphost "github.com/MegaGrindStone/go-mcphost"
	"github.com/MegaGrindStone/go-mcphost/servers/demo"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Usage = usage
	flag.Parse()

	setupLogging(*logLevel)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	switch args[0] {
	case "register":
		err = runRegister(args[1:])
	case "unregister":
		err = runUnregister(args[1:])
	case "list":
		err = runList()
	case "tools":
		err = runTools(cfg, args[1:])
	case "call":
		err = runCall(cfg, args[1:])
	case "stub":
		err = runStub(cfg, args[1:])
	case "demo":
		err = demo.NewServer().Serve(os.Stdin, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mcphost [flags] <command>

Commands:
  register <name> <command...>   register a friendly name for a server command
  unregister <name>              remove a registered name
  list                           list registered server names
  tools <server>                 list the tools a server advertises
  call <server> <tool> [k=v...]  invoke a tool with key=value arguments
  stub <server> [-pkg name]      generate typed Go wrappers for a server
  demo                           serve the built-in demo server on stdio

Flags:
`)
	flag.PrintDefaults()
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "unknown log level %q, using warn\n", level)
		l = slog.LevelWarn
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func loadConfig(explicit string) (mcphost.Config, error) {
	path, err := mcphost.FindConfig(explicit)
	if err != nil {
		return mcphost.Config{}, err
	}
	return mcphost.LoadConfig(path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "mcphost: %v\n", err)
	os.Exit(1)
}

func runRegister(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: mcphost register <name> <command...>")
	}
	return mcphost.Register(map[string]string{
		args[0]: strings.Join(args[1:], " "),
	})
}

func runUnregister(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mcphost unregister <name>")
	}
	return mcphost.Unregister(args[0])
}

func runList() error {
	registry, err := mcphost.LoadRegistry()
	if err != nil {
		return err
	}
	names, err := mcphost.Registered()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Printf("%s\t%s\n", name, registry[name])
	}
	return nil
}

func runTools(cfg mcphost.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mcphost tools <server>")
	}

	ctx := context.Background()
	srv, err := mcphost.Load(ctx, args[0], cfg.LoadOptions()...)
	if err != nil {
		return err
	}
	defer srv.Close()

	for _, tool := range srv.Tools() {
		fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
	}
	return nil
}

func runCall(cfg mcphost.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: mcphost call <server> <tool> [key=value...]")
	}

	arguments := make(map[string]any, len(args)-2)
	for _, kv := range args[2:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("argument %q is not key=value", kv)
		}
		arguments[key] = decodeValue(value)
	}

	ctx := context.Background()
	srv, err := mcphost.Load(ctx, args[0], cfg.LoadOptions()...)
	if err != nil {
		return err
	}
	defer srv.Close()

	result, err := srv.Call(ctx, args[1], arguments)
	if err != nil {
		return err
	}

	switch v := result.(type) {
	case string:
		fmt.Println(v)
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

// decodeValue interprets a CLI value as JSON when it parses, so numbers and
// booleans come through typed, and as a plain string otherwise.
func decodeValue(value string) any {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	return v
}

func runStub(cfg mcphost.Config, args []string) error {
	fs := flag.NewFlagSet("stub", flag.ContinueOnError)
	pkg := fs.String("pkg", "server", "package name for the generated stub")
	if err := fs.Parse(argsAfterFirst(args)); err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: mcphost stub <server> [-pkg name]")
	}

	ctx := context.Background()
	srv, err := mcphost.Load(ctx, args[0], cfg.LoadOptions()...)
	if err != nil {
		return err
	}
	defer srv.Close()

	resources, err := srv.Resources(ctx)
	if err != nil {
		// A peer without the resources capability still gets a tool stub.
		resources = nil
	}
	prompts, err := srv.Prompts(ctx)
	if err != nil {
		prompts = nil
	}

	stub, err := mcphost.GenerateStub(*pkg, srv.Tools(), resources, prompts)
	if err != nil {
		return err
	}

	fmt.Print(stub)
	return nil
}

func argsAfterFirst(args []string) []string {
	if len(args) <= 1 {
		return nil
	}
	return args[1:]
}
