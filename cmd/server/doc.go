// Package main is the entry point for the CodeCraft AI backend server.
//
// The server turns chat prompts into React components: a generation
// pipeline normalizes and validates model output, a sandboxed renderer
// preflights it server-side, and a websocket bridge connects editor pages
// with their live previews.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8000
//
// Optional backends are taken from the environment: MONGO_URI for
// persistence, REDIS_URL for the session read cache, OPENROUTER_API_KEY
// for generation.
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, flushing every open session
package main
