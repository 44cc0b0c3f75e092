// Package domain contains the core business entities of the retrieval
// pipeline: documents, chunks, evidence, answers, configuration, and the
// error taxonomy. It has no dependencies on adapters or infrastructure.
package domain
