// Package server wires the console together and runs the HTTP listener.
//
// New builds the store, session manager, verifiers, web console, and
// admin API from a Config; Run serves until the context is cancelled,
// then shuts down gracefully and closes the store. A background loop
// purges expired session rows hourly.
package server
