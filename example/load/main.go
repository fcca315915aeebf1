// Command load is a minimal example: it launches the built-in demo server as
// a subprocess, calls a couple of its tools, and reads a resource.
//
// Build the mcphost CLI first so the demo server is launchable:
//
//	go build -o /tmp/mcphost ./cmd/mcphost
//	go run ./example/load /tmp/mcphost
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <path-to-mcphost-binary>", os.Args[0])
	}

	ctx := context.Background()

	srv, err := mcphost.LoadArgs(ctx, []string{os.Args[1], "demo"})
	if err != nil {
		log.Fatalf("failed to load server: %v", err)
	}
	defer srv.Close()

	fmt.Printf("connected to %s\n", srv.Info().Name)
	for _, tool := range srv.Tools() {
		fmt.Printf("  tool: %s - %s\n", tool.Name, tool.Description)
	}

	echoed, err := srv.Call(ctx, "echo", map[string]any{"message": "hello"})
	if err != nil {
		log.Fatalf("echo failed: %v", err)
	}
	fmt.Printf("echo: %v\n", echoed)

	sum, err := srv.Call(ctx, "add", map[string]any{"a": 40, "b": 2})
	if err != nil {
		log.Fatalf("add failed: %v", err)
	}
	fmt.Printf("add: %v\n", sum)

	motd, err := srv.ReadResource(ctx, "demo://motd")
	if err != nil {
		log.Fatalf("read resource failed: %v", err)
	}
	fmt.Printf("motd: %v\n", motd)
}
