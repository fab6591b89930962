// Command dmctl is a diagnostic CLI over a demo device model bring-up:
// it scans the demo static descriptor table and hardware description
// tree, then prints the resulting device tree or allocation
// statistics, for manually exercising the core without a real board.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/urfave/cli/v2"

	"github.com/wowk/godm/dm"
	"github.com/wowk/godm/dmlog"
)

func main() {
	app := &cli.App{
		Name:  "dmctl",
		Usage: "inspect a demo device model bring-up",
		Commands: []*cli.Command{
			scanCommand(),
			treeCommand(),
			statsCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dmctl:", err)
		os.Exit(1)
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "run init_and_scan over the demo tree and report what bound",
		Action: func(c *cli.Context) error {
			log := dmlog.NewNamed("dmctl")
			r := newDemoRoot(log)
			if err := r.InitAndScan(); err != nil {
				return err
			}
			stats := r.GetStats()
			fmt.Printf("bound %d devices across %d uclasses\n", stats.DeviceCount, stats.UclassCount)
			return nil
		},
	}
}

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "print the bound device tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "only print devices whose tag matches key=value (space-separated terms, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			log := dmlog.NewNamed("dmctl")
			r := newDemoRoot(log)
			if err := r.InitAndScan(); err != nil {
				return err
			}

			terms, err := parseFilter(c.String("filter"))
			if err != nil {
				return err
			}
			printTree(r.Device(), 0, terms)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print device/uclass counts and probe allocation stats",
		Action: func(c *cli.Context) error {
			log := dmlog.NewNamed("dmctl")
			r := newDemoRoot(log)
			if err := r.InitAndScan(); err != nil {
				return err
			}
			stats := r.GetStats()
			mem := r.MemoryStats()
			fmt.Printf("devices=%d uclasses=%d priv_bytes=%d uclass_priv_bytes=%d parent_priv_bytes=%d\n",
				stats.DeviceCount, stats.UclassCount, mem.PrivBytes, mem.UclassPrivBytes, mem.ParentPrivBytes)
			return nil
		},
	}
}

// parseFilter tokenizes a filter expression with shlex so terms can
// be quoted (e.g. `-f 'vital="true"'`) and splits each token on "=".
func parseFilter(expr string) (map[string]string, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	tokens, err := shlex.Split(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing filter expression: %w", err)
	}
	terms := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, fmt.Errorf("filter term %q is not key=value", tok)
		}
		terms[key] = value
	}
	return terms, nil
}

func matchesFilter(d *dm.Device, terms map[string]string) bool {
	for key, want := range terms {
		got, ok := d.Tag(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func printTree(d *dm.Device, depth int, terms map[string]string) {
	if d == nil {
		return
	}
	if matchesFilter(d, terms) {
		state := "bound"
		if d.IsActivated() {
			state = "active"
		}
		fmt.Printf("%s%s (%s, %s)\n", strings.Repeat("  ", depth), d.Name(), d.Driver().Name, state)
	}
	for _, child := range d.Children() {
		printTree(child, depth+1, terms)
	}
}
