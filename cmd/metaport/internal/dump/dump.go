// Package dump implements the dump command: load Go packages, import their
// types into a fresh container and write the container as JSON.
package dump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/broady/metaport"
	"github.com/broady/metaport/host/gotypes"
	"github.com/broady/metaport/internal/logging"
	"github.com/broady/metaport/metadata"
)

type Cmd struct {
	Patterns []string `arg:"" help:"Package patterns to load." default:"."`
	Types    []string `help:"Types to import as import/path.Name (default: every exported type)." short:"t"`
	Members  bool     `help:"Also import exported methods and fields." short:"m"`
	Module   string   `help:"Name of the destination container." default:"Imports.dll"`
	Config   string   `help:"Engine configuration file (JSON, YAML or TOML)." short:"c" type:"existingfile"`
	Out      string   `help:"Write JSON to this file instead of stdout." short:"o"`
	Verbose  bool     `help:"Log imports at debug level." short:"v"`
}

func (c *Cmd) Run() error {
	cfg := metaport.DefaultConfig()
	if c.Config != "" {
		var err error
		if cfg, err = metaport.LoadConfig(c.Config); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	level := cfg.LogLevel
	if c.Verbose {
		level = "debug"
	}
	logger := logging.New(level, os.Stderr)

	u, err := gotypes.Load(context.Background(), c.Patterns...)
	if err != nil {
		return err
	}

	container, err := Import(u, Options{
		Types:   c.Types,
		Members: c.Members,
		Module:  c.Module,
		Config:  cfg,
	}, logger)
	if err != nil {
		return err
	}

	if c.Out == "" {
		return Write(os.Stdout, container)
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return writeAndClose(f, container)
}

// Options selects what Import brings into the container.
type Options struct {
	// Types are "import/path.Name" selectors. Empty selects every exported
	// type of every loaded package.
	Types []string

	// Members also imports exported methods and fields of each type.
	Members bool

	// Module names the destination container; its assembly is named after
	// the module without extension.
	Module string

	Config metaport.Config
}

// Import creates a container and imports the selected types of u into it.
// Members whose types are unsupported shapes, such as maps, are skipped with
// a warning.
func Import(u *gotypes.Universe, opts Options, logger *slog.Logger) (*metadata.Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Module
	if name == "" {
		name = "Imports.dll"
	}
	container := metadata.NewContainer(name, metadata.AssemblyName{
		Name: strings.TrimSuffix(name, filepath.Ext(name)),
	})
	engine := metaport.NewEngine(container).WithLogger(logger).WithConfig(opts.Config)

	targets, err := selectTypes(u, opts.Types)
	if err != nil {
		return nil, err
	}

	for _, t := range targets {
		if _, err := engine.ImportSystemType(t, nil); err != nil {
			return nil, fmt.Errorf("import %s: %w", t, err)
		}
		if !opts.Members {
			continue
		}
		for _, m := range t.Methods() {
			if !token.IsExported(m.Name()) {
				continue
			}
			_, err := engine.ImportMethodInfo(m, nil)
			if err := skipUnsupported(logger, t, m.Name(), err); err != nil {
				return nil, err
			}
		}
		for _, f := range u.Fields(t) {
			_, err := engine.ImportFieldInfo(f, nil)
			if err := skipUnsupported(logger, t, f.Name(), err); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("import complete",
		slog.String("container", container.Name),
		slog.Int("types", len(targets)),
		slog.Int("typeReferences", len(container.TypeReferences())),
		slog.Int("memberReferences", len(container.MemberReferences())))
	return container, nil
}

func skipUnsupported(logger *slog.Logger, t *gotypes.Type, member string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, metaport.ErrUnsupportedShape) {
		logger.Warn("member skipped",
			slog.String("type", t.String()),
			slog.String("member", member),
			slog.Any("error", err))
		return nil
	}
	return fmt.Errorf("import %s.%s: %w", t, member, err)
}

func selectTypes(u *gotypes.Universe, selectors []string) ([]*gotypes.Type, error) {
	var out []*gotypes.Type
	if len(selectors) == 0 {
		for _, path := range u.Packages() {
			names, err := u.TypeNames(path)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				t, err := u.Lookup(path, name)
				if err != nil {
					return nil, err
				}
				out = append(out, t)
			}
		}
		return out, nil
	}

	for _, sel := range selectors {
		i := strings.LastIndex(sel, ".")
		if i <= 0 || i < strings.LastIndex(sel, "/") || i == len(sel)-1 {
			return nil, metaport.Errorf(metaport.CodeInvalidArgument, "type selector %q is not import/path.Name", sel)
		}
		t, err := u.Lookup(sel[:i], sel[i+1:])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Write encodes the container as indented JSON.
func Write(w io.Writer, c *metadata.Container) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode container: %w", err)
	}
	return nil
}

// writeAndClose writes c to wc and closes it. A close failure is reported
// when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, c *metadata.Container) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return Write(wc, c)
}
