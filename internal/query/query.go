// Package query defines the contract SQL engines implement: parse a statement
// batch and report each statement's shape.
package query

import "github.com/lunedb/lune/internal/engine"

// Class is the coarse shape of a parsed statement.
type Class string

const (
	ClassQuery Class = "query" // SELECT and other result-producing statements
	ClassDML   Class = "dml"   // INSERT, UPDATE, DELETE
	ClassDDL   Class = "ddl"   // CREATE, ALTER, DROP
	ClassOther Class = "other"
)

// Statement is one parsed statement with its classification.
type Statement struct {
	Text  string
	Class Class
}

// Engine is a SQL engine.
type Engine interface {
	engine.Engine

	// Parse parses a semicolon-separated statement batch.
	Parse(sql string) ([]Statement, error)
}
