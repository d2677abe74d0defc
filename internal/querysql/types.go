package querysql

// Dialect selects placeholder syntax and transaction options.
type Dialect int

const (
	// SQLite uses ? placeholders (mattn/go-sqlite3 and modernc.org/sqlite).
	SQLite Dialect = iota
	// Postgres uses $n placeholders (lib/pq).
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// Select is a single-table query.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []Order
	// Limit caps the row count; zero means no limit.
	Limit int
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Predicate is a WHERE clause fragment.
type Predicate interface {
	predicate()
}

// Equals compiles to "field = ?".
type Equals struct {
	Field string
	Value any
}

// NotEquals compiles to "field <> ?".
type NotEquals struct {
	Field string
	Value any
}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

// RowLess compiles to the row-value comparison "(a, b, c) < (?, ?, ?)",
// i.e. a lexicographic comparison over the listed columns.
type RowLess struct {
	Fields []string
	Values []any
}

// RowGreater compiles to "(a, b, c) > (?, ?, ?)".
type RowGreater struct {
	Fields []string
	Values []any
}

func (Equals) predicate()     {}
func (NotEquals) predicate()  {}
func (And) predicate()        {}
func (RowLess) predicate()    {}
func (RowGreater) predicate() {}
