// Command memprobe exercises a wasm module's exported allocator: run a
// scripted allocation scenario and report leaks, or drive the heap
// interactively with a live view of outstanding blocks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ownptr/guest"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm module exporting malloc/free or cabi_realloc")
		scenario    = flag.String("scenario", "", "YAML allocation scenario to run")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose allocator logging")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: memprobe -wasm <mod.wasm> -scenario <plan.yaml>")
		fmt.Fprintln(os.Stderr, "       memprobe -wasm <mod.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		if log, err := zap.NewDevelopment(); err == nil {
			guest.SetLogger(log)
		}
	}

	sess, err := openSession(*wasmFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer sess.close()

	if *interactive {
		if err := runInteractive(sess); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *scenario == "" {
		fmt.Fprintln(os.Stderr, "Error: either -scenario or -i is required")
		os.Exit(1)
	}
	if err := runScenario(sess, *scenario); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session bundles an instantiated module with its tracked allocator.
type session struct {
	ctx   context.Context
	rt    wazero.Runtime
	mod   api.Module
	mem   api.Memory
	alloc *guest.Tracking
	name  string
}

func openSession(path string) (*session, error) {
	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	rt := wazero.NewRuntime(ctx)

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("compile module: %w", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("module exports no memory")
	}

	inner, err := guest.Detect(ctx, mod)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	return &session{
		ctx:   ctx,
		rt:    rt,
		mod:   mod,
		mem:   mem,
		alloc: guest.NewTracking(inner, guest.Logger()),
		name:  path,
	}, nil
}

func (s *session) close() {
	_ = s.rt.Close(s.ctx)
}
