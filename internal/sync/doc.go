// Package sync implements the template synchronization decision engine.
// It classifies upstream changes, scopes them with include/exclude globs,
// resolves a per-file merge strategy, detects local modifications, and
// decides for every file whether to apply, skip, or escalate it to
// interactive resolution.
//
// # Decision flow
//
// A run diffs the last synchronized revision against the sync target,
// narrows the change set with Filter, and walks the remaining files in
// order. Each file passes through the strategy rules and the modification
// detector before the engine settles on exactly one outcome:
//
//   - ActionSynced: upstream content written (or the file removed)
//   - ActionSkipped: local content kept
//   - ActionConflict: needs manual or interactive resolution
//   - ActionError: content could not be read or written
//
// # Strategies
//
// Available strategies:
//   - StrategyPrompt: ask the resolver on divergence
//   - StrategyUpstream: always take the upstream version
//   - StrategyLocal: always keep the local version
//   - StrategyManual: flag divergence as a conflict for manual merging
//
// # Dry runs
//
// With Options.DryRun the engine reports the action it would take without
// touching the working tree and without prompting. Files that would reach
// an interactive prompt come back as conflicts awaiting resolution.
package sync
