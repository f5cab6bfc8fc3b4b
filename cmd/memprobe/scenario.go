package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/ownptr/guest"
)

// Scenario is a yaml-scripted allocation sequence:
//
//	steps:
//	  - {op: alloc, name: a, size: 64, align: 8}
//	  - {op: write, name: a, data: "hello"}
//	  - {op: free, name: a}
//
// Blocks left unfreed at the end are reported as leaks.
type Scenario struct {
	Steps []Step `yaml:"steps"`
}

// Step is a single scenario operation.
type Step struct {
	Op    string `yaml:"op"`
	Name  string `yaml:"name"`
	Size  uint32 `yaml:"size"`
	Align uint32 `yaml:"align"`
	Data  string `yaml:"data"`
}

func runScenario(sess *session, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}

	blocks := make(map[string]*guest.Owned)

	for i, step := range sc.Steps {
		switch step.Op {
		case "alloc":
			align := step.Align
			if align == 0 {
				align = 1
			}
			o, err := guest.Alloc(sess.alloc, sess.mem, step.Size, align)
			if err != nil {
				return fmt.Errorf("step %d: alloc %q: %w", i, step.Name, err)
			}
			blocks[step.Name] = o
			fmt.Printf("alloc %-8s %s\n", step.Name, o)

		case "write":
			o, ok := blocks[step.Name]
			if !ok {
				return fmt.Errorf("step %d: write to unknown block %q", i, step.Name)
			}
			if err := o.Write([]byte(step.Data)); err != nil {
				return fmt.Errorf("step %d: write %q: %w", i, step.Name, err)
			}
			fmt.Printf("write %-8s %d bytes\n", step.Name, len(step.Data))

		case "free":
			o, ok := blocks[step.Name]
			if !ok {
				return fmt.Errorf("step %d: free of unknown block %q", i, step.Name)
			}
			o.Close()
			delete(blocks, step.Name)
			fmt.Printf("free  %-8s\n", step.Name)

		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
	}

	leaks := 0
	sess.alloc.Each(func(off, size, align uint32) bool {
		fmt.Printf("LEAK  guest:0x%x+%d (align %d)\n", off, size, align)
		leaks++
		return true
	})
	if leaks > 0 {
		return fmt.Errorf("%d blocks leaked", leaks)
	}

	fmt.Printf("ok: %d allocs, %d frees\n", sess.alloc.Allocs(), sess.alloc.Frees())
	return nil
}
