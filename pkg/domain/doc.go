// Package domain contains the entities shared across the service: the
// analysis report for a single URL and the persisted check that wraps it.
// The types carry no infrastructure concerns so every layer can use them.
package domain
