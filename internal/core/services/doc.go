// Package services implements the application core: the document
// memory store over the vector index and the relevance decay
// evaluator. Services depend on ports, never on adapters.
package services
