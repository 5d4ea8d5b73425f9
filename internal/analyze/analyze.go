// Package analyze orchestrates parsing, identity resolution, MRO
// computation, and registration for one analysis run.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"mromap/internal/config"
	"mromap/internal/descriptor"
	"mromap/internal/discover"
	"mromap/internal/mro"
	"mromap/internal/pymod"
	"mromap/internal/pyparse"
	"mromap/internal/registry"
	"mromap/internal/report"
	"mromap/internal/resolve"
)

// Analyzer accumulates parsed files, registers their classes, and builds the
// final report. It is bound to a workspace root that anchors module paths.
// Not safe for concurrent use; Workspace parses concurrently internally but
// stages and registers sequentially.
type Analyzer struct {
	root string
	cfg  config.Config
	reg  *registry.Registry

	files []*stagedFile
	index map[string]int // path -> files position; re-adding replaces
}

type stagedFile struct {
	path   string // path as supplied; used as the registry and report key
	module string
	parsed *pyparse.File
}

// New returns an analyzer rooted at root.
func New(root string, cfg config.Config) *Analyzer {
	return &Analyzer{
		root:  root,
		cfg:   cfg,
		reg:   registry.New(),
		index: make(map[string]int),
	}
}

// Registry exposes the registry snapshot, mainly for tests.
func (a *Analyzer) Registry() *registry.Registry {
	return a.reg
}

// AddFile parses the file at path and stages it for Resolve. Re-adding a
// path replaces the staged content.
func (a *Analyzer) AddFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return a.AddSource(path, src)
}

// AddSource parses src as the content of path and stages it.
func (a *Analyzer) AddSource(path string, src []byte) error {
	parsed, err := pyparse.NewParser().Parse(context.Background(), src, path)
	if err != nil {
		return err
	}
	a.stage(parsed)
	return nil
}

func (a *Analyzer) stage(parsed *pyparse.File) {
	sf := &stagedFile{
		path:   parsed.Path,
		module: a.modulePath(parsed.Path),
		parsed: parsed,
	}
	if pos, ok := a.index[sf.path]; ok {
		a.files[pos] = sf
		return
	}
	a.index[sf.path] = len(a.files)
	a.files = append(a.files, sf)
}

func (a *Analyzer) modulePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(a.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	return pymod.ModulePath(rel)
}

// Resolve computes identities and MROs for everything staged and registers
// it. A class that fails registration is skipped with a warning; the batch
// continues. Resolve may be called again after further AddFile calls.
func (a *Analyzer) Resolve() {
	type classEntry struct {
		file     *stagedFile
		cls      *pyparse.Class
		identity string
		bases    []string
	}

	var entries []classEntry
	basesTable := make(map[string][]string)

	for _, sf := range a.files {
		local := make(map[string]bool, len(sf.parsed.Classes))
		for i := range sf.parsed.Classes {
			local[sf.parsed.Classes[i].Name] = true
		}
		for i := range sf.parsed.Classes {
			cls := &sf.parsed.Classes[i]
			entry := classEntry{
				file:     sf,
				cls:      cls,
				identity: pymod.Identity(sf.module, cls.Name),
			}
			for _, base := range cls.Bases {
				resolved := a.resolveBase(sf, local, base)
				if resolved == "object" || resolved == "builtins.object" {
					continue
				}
				entry.bases = append(entry.bases, resolved)
			}
			entries = append(entries, entry)
			basesTable[entry.identity] = entry.bases
		}
	}

	for _, entry := range entries {
		linear, err := mro.Linearize(entry.identity, basesTable)
		if err != nil {
			slog.Warn("falling back to depth-first ancestor order",
				slog.String("class", entry.identity),
				slog.String("error", err.Error()))
			linear = mro.Fallback(entry.identity, basesTable)
		}

		methods := make([]descriptor.Method, 0, len(entry.cls.Methods))
		for _, m := range entry.cls.Methods {
			methods = append(methods, descriptor.Method{
				Name:          m.Name,
				Line:          m.Line,
				Column:        m.Column,
				EndLine:       m.EndLine,
				EndColumn:     m.EndColumn,
				IsAsync:       m.IsAsync,
				IsAbstract:    m.IsAbstract,
				IsStatic:      m.IsStatic,
				IsClassMethod: m.IsClassMethod,
				IsProperty:    m.IsProperty,
				Decorators:    m.Decorators,
				ClassName:     entry.identity,
				FilePath:      entry.file.path,
			})
		}

		err = a.reg.Register(entry.identity, methods, linear, entry.file.path, entry.bases, entry.cls.Line)
		if err != nil {
			slog.Warn("skipping class registration",
				slog.String("class", entry.identity),
				slog.String("error", err.Error()))
		}
	}
}

// resolveBase maps a base expression as written to a qualified identity:
// through the file's imports first, then through classes of the same module,
// otherwise unchanged.
func (a *Analyzer) resolveBase(sf *stagedFile, local map[string]bool, base string) string {
	base = strings.TrimSpace(base)

	if target, ok := sf.parsed.Imports[base]; ok {
		return a.resolveImported(sf.module, target)
	}

	if i := strings.Index(base, "."); i > 0 {
		head, rest := base[:i], base[i+1:]
		if target, ok := sf.parsed.Imports[head]; ok {
			return a.resolveImported(sf.module, target) + "." + rest
		}
		return base
	}

	if local[base] {
		return pymod.Identity(sf.module, base)
	}
	return base
}

// resolveImported turns an import target into an absolute module path,
// resolving a leading dot prefix against the importing module.
func (a *Analyzer) resolveImported(module, target string) string {
	if !strings.HasPrefix(target, ".") {
		return target
	}
	level := 0
	for level < len(target) && target[level] == '.' {
		level++
	}
	return pymod.ResolveRelative(module, level, target[level:])
}

// Report runs the relationship pass over the current registry snapshot and
// builds the per-file output.
func (a *Analyzer) Report() map[string]report.File {
	rels := resolve.New(a.reg).Relationships()
	return report.Build(a.reg, rels)
}

// Workspace discovers, parses, and registers every Python file under the
// root, then logs a summary. Parsing runs on a bounded pool; staging and
// registration stay strictly sequential.
func (a *Analyzer) Workspace(ctx context.Context) error {
	files, err := discover.Files(a.root, a.cfg.Exclude)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}

	maxSize := a.cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = config.DefaultMaxFileSize
	}

	var kept []string
	for _, rel := range files {
		info, err := os.Stat(filepath.Join(a.root, rel))
		if err == nil && info.Size() > maxSize {
			slog.Warn("skipping large file",
				slog.String("file", rel),
				slog.Int64("size", info.Size()))
			continue
		}
		kept = append(kept, rel)
	}

	parsed := make([]*pyparse.File, len(kept))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())
	for i, rel := range kept {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(a.root, rel)
			src, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable file",
					slog.String("file", rel),
					slog.String("error", err.Error()))
				return nil
			}
			f, err := pyparse.NewParser().Parse(ctx, src, path)
			if err != nil {
				slog.Warn("skipping unparseable file",
					slog.String("file", rel),
					slog.String("error", err.Error()))
				return nil
			}
			parsed[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range parsed {
		if f != nil {
			a.stage(f)
		}
	}
	a.Resolve()

	slog.Info("workspace analyzed",
		slog.Int("files_scanned", len(kept)),
		slog.Int("classes", a.reg.Len()))
	return nil
}

func (a *Analyzer) workers() int {
	if a.cfg.Workers > 0 {
		return a.cfg.Workers
	}
	return config.Default().Workers
}
