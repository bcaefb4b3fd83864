// Package internal contains the implementation packages of minipack.
//
// # Package Organization
//
//   - registry: module cache resolving and memoizing module bodies
//   - loader: per-unit transform chain with pitch and normal phases
//   - hooks: typed lifecycle hooks with sync, series and parallel dispatch
//   - compiler: run orchestration, compilation assets, emit and metrics
//   - loaders, plugins: built-in collaborators published as registry modules
//   - config, errors, logging: configuration, typed errors and slog logging
//
// # Inter-Package Communication
//
// The compiler resolves loaders and plugins through the module registry by
// identifier. Plugins tap compiler hooks when applied and may define custom
// hooks in the compiler's hook registry for other plugins to tap. Loader
// chains talk back to the compilation only through the emit callback of
// their context.
//
// # Testing Strategy
//
//   - Unit tests with testify for every package
//   - Property tests with gopter behind the "property" build tag
//   - Shared fixtures in testutils
package internal
