// Package agent contains confab's core (non-UI) logic.
//
// It connects the configured providers into one registry, resolves the
// model/provider configuration and runs queries, resource reads and prompts
// through the chat engine.
package agent
