// Package lusql implements the SQL engine on the pingcap parser.
package lusql

import (
	"fmt"
	"sync"

	"github.com/pingcap/parser"
	"github.com/pingcap/parser/ast"

	// The parser requires a value-expression driver to be registered before
	// parser.New runs; test_driver is the parser's own standalone one.
	_ "github.com/pingcap/parser/test_driver"

	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/query"
)

// EngineName is the descriptor name this engine registers under.
const EngineName = "lusql"

func init() {
	engine.RegisterFactory(engine.CategoryQuery, EngineName, func(env *engine.Env) engine.Engine {
		return New()
	})
}

var _ query.Engine = (*Engine)(nil)

// Engine parses SQL with a single shared parser instance. The parser is not
// goroutine-safe, so Parse serializes on a mutex.
type Engine struct {
	mu        sync.Mutex
	parser    *parser.Parser
	charset   string
	collation string
}

// New creates an uninitialized engine.
func New() *Engine {
	return &Engine{parser: parser.New()}
}

// Name returns the engine's declared name.
func (e *Engine) Name() string { return EngineName }

// Init reads the optional charset and collation parameters.
func (e *Engine) Init(params map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.charset = params["charset"]
	e.collation = params["collation"]
	e.parser.SetSQLMode(0)
	return nil
}

// Parse parses a statement batch and classifies each statement.
func (e *Engine) Parse(sql string) ([]query.Statement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nodes, _, err := e.parser.Parse(sql, e.charset, e.collation)
	if err != nil {
		return nil, fmt.Errorf("lusql: parse: %w", err)
	}

	stmts := make([]query.Statement, 0, len(nodes))
	for _, node := range nodes {
		stmts = append(stmts, query.Statement{
			Text:  node.Text(),
			Class: classify(node),
		})
	}
	return stmts, nil
}

func classify(node ast.StmtNode) query.Class {
	switch node.(type) {
	case *ast.SelectStmt, *ast.UnionStmt:
		return query.ClassQuery
	case *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt:
		return query.ClassDML
	}
	if _, ok := node.(ast.DDLNode); ok {
		return query.ClassDDL
	}
	return query.ClassOther
}
