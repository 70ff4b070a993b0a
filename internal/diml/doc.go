// Package diml converts flows to and from DIML, the XML interchange format
// for a domain.Flow.
//
// A DIML document has a single deepFlow root carrying the flow and intent
// ids as attributes, with metadata, resources, steps and output sections.
// Resource configuration and the natural-language description have no DIML
// form and are dropped by Encode.
//
// All functions are pure and safe for concurrent use.
package diml
