// Package shared holds helpers used across the dashboard's packages that belong
// to no single domain.
//
// The testutil subpackage captures slog output so tests can assert on what a
// component logged:
//
//	logger, logs := testutil.NewTestLogger(t)
//	loader, _ := loader.New(ctx, cfg, loader.Deps{Logger: logger})
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelInfo, "optional dataset unavailable")
//
// It should only contain test utilities and generic helpers with no business
// logic.
package shared
