// Package normalisers contains format-specific document normalisers.
// Each subpackage converts one raw format into the page-structured
// Document the pipeline chunks and indexes.
package normalisers
