// Package application provides application initialization and dependency wiring.
// It selects the catalog source, builds the packaging rules, pricing engine,
// session manager, handlers, routers and HTTP server, keeping the main package
// focused on CLI parsing and orchestration.
package application
