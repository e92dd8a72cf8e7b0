package tracklint

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/tracklint/internal/binding"
	"github.com/jward/tracklint/internal/config"
	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/reactivity"
	"github.com/jward/tracklint/internal/store"
	"github.com/jward/tracklint/internal/syntax"
)

const (
	tracerName = "github.com/jward/tracklint"

	// configHashKey is the metadata key of the settings the cached
	// findings were computed with.
	configHashKey = "config_hash"
)

// Engine orchestrates the lint pipeline: file discovery, change detection,
// analysis and access to the findings cache.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
	tracer trace.Tracer

	customHooks []string
	kinds       []diag.Kind // nil means all kinds
	exclude     []string

	useCache    bool
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for pipeline events. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithParallel controls parallel analysis. When true (default), LintFiles
// analyzes files on a worker pool, with a single writer committing batches
// to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithCustomHooks adds function names whose function arguments are tracked
// like those of use*/create* hooks.
func WithCustomHooks(names ...string) Option {
	return func(e *Engine) {
		e.customHooks = append(e.customHooks, names...)
	}
}

// WithChecks restricts reported findings to the given kinds.
func WithChecks(kinds ...diag.Kind) Option {
	return func(e *Engine) {
		e.kinds = append(e.kinds, kinds...)
	}
}

// WithExclude skips files matching any of the glob patterns. Patterns use
// forward slashes, support ** and are matched against paths relative to
// the directory being linted.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithCache controls reuse of cached findings for unchanged files. When
// false every file is analyzed again; results are still recorded.
func WithCache(useCache bool) Option {
	return func(e *Engine) {
		e.useCache = useCache
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// WithConfig applies the analysis settings of a loaded configuration.
func WithConfig(c *config.Config) Option {
	return func(e *Engine) {
		e.customHooks = append(e.customHooks, c.CustomHooks...)
		e.kinds = append(e.kinds, c.Kinds()...)
		e.exclude = append(e.exclude, c.Exclude...)
		e.useCache = !c.NoCache
		e.useParallel = c.Parallel
	}
}

// New creates an Engine backed by a SQLite findings cache at dbPath. The
// parent directory is created if needed.
func New(dbPath string, opts ...Option) (*Engine, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tracklint: create cache dir: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("tracklint: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("tracklint: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
		useCache:    true,
		useParallel: true, // default to parallel analysis
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// configHash identifies the settings that change analysis results.
func (e *Engine) configHash() string {
	c := &config.Config{CustomHooks: e.customHooks}
	for _, k := range e.kinds {
		c.Checks = append(c.Checks, string(k))
	}
	return c.Hash()
}

// ConfigChanged reports whether the findings cache was built with
// different analysis settings. Returns true if the DB has no stored hash.
func (e *Engine) ConfigChanged() bool {
	stored, err := e.store.GetMetadata(configHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.configHash()
}

// syncConfig drops every cached finding when the settings changed.
func (e *Engine) syncConfig() error {
	if !e.ConfigChanged() {
		return nil
	}
	e.logger.Debug("analysis settings changed, clearing cached findings")
	if err := e.store.ClearFindings(); err != nil {
		return err
	}
	return e.store.SetMetadata(configHashKey, e.configHash())
}

// Report is the outcome of a lint run.
type Report struct {
	// Diagnostics are sorted by file and position.
	Diagnostics []diag.Diagnostic
	// Files is the number of files linted, Cached how many of them were
	// served from the findings cache.
	Files  int
	Cached int
}

// LintFiles lints the given file paths. Files with unsupported extensions
// are skipped. When WithParallel is enabled, uses a worker pool for
// concurrent analysis with batched SQLite writes. Otherwise falls back to
// the serial path.
//
// Errors on individual files are collected and returned together; the
// Report holds the findings of every file that was linted.
func (e *Engine) LintFiles(ctx context.Context, paths []string) (*Report, error) {
	ctx, span := e.tracer.Start(ctx, "tracklint.Lint")

	if err := e.syncConfig(); err != nil {
		err = fmt.Errorf("tracklint: %w", err)
		endSpan(span, 0, err)
		return nil, err
	}

	var supported []string
	for _, path := range paths {
		if _, ok := syntax.DialectForFile(path); ok {
			supported = append(supported, filepath.Clean(path))
		}
	}

	var (
		rep *Report
		err error
	)
	if e.useParallel {
		rep, err = e.lintFilesParallel(ctx, supported)
	} else {
		rep, err = e.lintFilesSerial(ctx, supported)
	}
	diag.Sort(rep.Diagnostics)
	endSpan(span, len(rep.Diagnostics), err,
		attribute.Int("files", rep.Files),
		attribute.Int("cached", rep.Cached),
	)
	return rep, err
}

func (e *Engine) lintFilesSerial(ctx context.Context, paths []string) (*Report, error) {
	rep := &Report{}
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		diags, cached, err := e.lintFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("lint %s: %w", path, err))
			continue
		}
		rep.add(diags, cached)
	}
	return rep, joinErrors("linting", errs)
}

// lintFile runs all three pipeline phases for one file.
func (e *Engine) lintFile(ctx context.Context, path string) ([]diag.Diagnostic, bool, error) {
	item, err := e.prepareFile(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if item.cached {
		return item.diags, true, nil
	}
	diags, err := e.analyzeFile(ctx, item)
	if err != nil {
		return nil, false, err
	}
	if err := e.store.CommitBatch(item.batch); err != nil {
		return nil, false, err
	}
	return diags, false, nil
}

func (r *Report) add(diags []diag.Diagnostic, cached bool) {
	r.Diagnostics = append(r.Diagnostics, diags...)
	r.Files++
	if cached {
		r.Cached++
	}
}

func joinErrors(what string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s had %d error(s): %w", what, len(errs), errs[0])
}

// LintSource analyzes src as the contents of path without touching the
// findings cache. The dialect is chosen from the path's extension.
func (e *Engine) LintSource(ctx context.Context, path string, src []byte) ([]diag.Diagnostic, error) {
	d, ok := syntax.DialectForFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", syntax.ErrUnsupportedLanguage, path)
	}
	return e.analyze(ctx, path, src, d)
}

// analyze parses src, resolves its bindings and runs the reactivity
// analysis. Suppressed findings and disabled kinds are dropped.
func (e *Engine) analyze(ctx context.Context, path string, src []byte, d syntax.Dialect) ([]diag.Diagnostic, error) {
	tree, err := syntax.Parse(ctx, src, d)
	if err != nil {
		return nil, err
	}
	if tree.HasErrors {
		e.logger.Debug("syntax errors, analyzing partial tree", "path", path)
	}

	res, err := reactivity.Analyze(tree, binding.Analyze(tree.Root), nil, reactivity.Options{
		CustomHooks: e.customHooks,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	diags := diag.ParseDirectives(tree.Comments).Filter(res.Diagnostics)
	out := make([]diag.Diagnostic, 0, len(diags))
	for _, dg := range diags {
		if e.kinds != nil && !slices.Contains(e.kinds, dg.Kind) {
			continue
		}
		dg.SetFile(path)
		out = append(out, dg)
	}
	return out, nil
}

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// LintDirectory walks root and lints all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden dirs,
// node_modules, vendor, dist and build) if git is unavailable.
func (e *Engine) LintDirectory(ctx context.Context, root string) (*Report, error) {
	paths, err := e.ListFiles(root)
	if err != nil {
		return nil, err
	}
	return e.LintFiles(ctx, paths)
}

// ListFiles returns the lintable files under root, minus excluded ones.
func (e *Engine) ListFiles(root string) ([]string, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking directory", "root", root, "error", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.filterExcluded(root, paths), nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported dialects.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path := filepath.Join(root, line)
		if _, ok := syntax.DialectForFile(path); ok {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := syntax.DialectForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func (e *Engine) filterExcluded(root string, paths []string) []string {
	if len(e.exclude) == 0 {
		return paths
	}
	var kept []string
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if !e.excluded(filepath.ToSlash(rel)) {
			kept = append(kept, path)
		}
	}
	return kept
}

func (e *Engine) excluded(rel string) bool {
	for _, pattern := range e.exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// FixResult describes the edits applied by Fix.
type FixResult struct {
	// Fixed is the number of findings whose edits were applied.
	Fixed int
	// Files are the files that were rewritten.
	Files []string
}

// Fix applies the suggested edits of diags to the files they refer to.
// Within a file, a finding whose edits overlap an earlier one is skipped;
// running lint and fix again picks it up.
func (e *Engine) Fix(diags []diag.Diagnostic) (*FixResult, error) {
	byFile := make(map[string][]diag.Diagnostic)
	var order []string
	for _, d := range diags {
		if len(d.Fixes) == 0 {
			continue
		}
		if _, ok := byFile[d.Pos.File]; !ok {
			order = append(order, d.Pos.File)
		}
		byFile[d.Pos.File] = append(byFile[d.Pos.File], d)
	}

	res := &FixResult{}
	for _, path := range order {
		edits, fixed := diag.SelectFixes(byFile[path])
		if fixed == 0 {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return res, fmt.Errorf("tracklint: fix %s: %w", path, err)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return res, fmt.Errorf("tracklint: fix %s: %w", path, err)
		}
		out, err := diag.ApplyEdits(src, edits)
		if err != nil {
			return res, fmt.Errorf("tracklint: fix %s: %w", path, err)
		}
		if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
			return res, fmt.Errorf("tracklint: fix %s: %w", path, err)
		}
		e.logger.Info("applied fixes", "path", path, "fixed", fixed)
		res.Fixed += fixed
		res.Files = append(res.Files, path)
	}
	return res, nil
}
