// Package tracklint finds reactivity mistakes in JavaScript and TypeScript
// code written against a fine-grained reactive UI framework: signals read
// outside tracked scopes, stores and props mutated in place, signals used
// as values without being called, and async functions passed where the
// framework tracks synchronously.
//
// # Pipeline
//
// For each source file the [Engine] parses the file with tree-sitter,
// builds the lexical scope table, runs the reactivity analysis and stores
// the findings in a SQLite cache keyed by the file's content hash:
//
//  1. Prepare (serial): detect the dialect, hash the content, reuse the
//     cached findings of unchanged files and reset stale ones.
//  2. Analyze (parallel): one analysis per file on a worker pool, each
//     writing into its own in-memory batch.
//  3. Commit (serial): each batch is written to SQLite in one transaction.
//
// # Usage
//
//	e, err := tracklint.New(".tracklint/cache.db",
//		tracklint.WithCustomHooks("watch"),
//	)
//	if err != nil { ... }
//	defer e.Close()
//
//	rep, err := e.LintDirectory(ctx, "src")
//	for _, d := range rep.Diagnostics {
//		fmt.Println(d)
//	}
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] reads the cache without
// re-analyzing anything:
//
//   - [QueryBuilder.Findings]: findings recorded for one file.
//   - [QueryBuilder.FindingsByKind]: findings of the given kinds across files.
//   - [QueryBuilder.Summary]: counts per kind and per file.
//   - [QueryBuilder.Files]: every file in the cache.
//
// # Suppression
//
// A finding is dropped when its line carries a trailing
// "// tracklint-disable-line" comment or the previous line is
// "// tracklint-disable-next-line". Either directive may name the kinds it
// disables, comma separated.
package tracklint
