package db

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/google/uuid"
)

const DefaultTable = "TB_BANK_TRANSACTIONS"

var ErrEmptyCatalog = errors.New("query catalog is empty")

type query struct {
	raw  string
	tmpl *template.Template
}

// Catalog is the fixed list of queries a run cycles through. Query id n runs
// entry n modulo the catalog size.
type Catalog struct {
	queries []query
}

// NewCatalog parses every entry. Entries without template actions are used
// verbatim.
func NewCatalog(queries []string) (*Catalog, error) {
	if len(queries) == 0 {
		return nil, ErrEmptyCatalog
	}

	engine := newTemplateEngine()
	c := &Catalog{queries: make([]query, 0, len(queries))}
	for i, raw := range queries {
		q := query{raw: raw}
		if strings.Contains(raw, "{{") {
			t, err := engine.parse(fmt.Sprintf("query-%d", i), raw)
			if err != nil {
				return nil, fmt.Errorf("parsing query %d: %w", i, err)
			}
			q.tmpl = t
		}
		c.queries = append(c.queries, q)
	}
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.queries)
}

// Render returns the SQL text for queryID.
func (c *Catalog) Render(queryID int) (string, error) {
	idx := queryID % len(c.queries)
	if idx < 0 {
		idx += len(c.queries)
	}

	q := c.queries[idx]
	if q.tmpl == nil {
		return q.raw, nil
	}
	return render(q.tmpl, TemplateData{QueryID: queryID, UUID: uuid.NewString()})
}

// DefaultQueries builds the read workload against the bank transactions table.
func DefaultQueries(table string) ([]string, error) {
	if table == "" {
		table = DefaultTable
	}

	d := goqu.Dialect("mysql")
	t := goqu.T(table)
	txType := goqu.C("transaction_type")

	datasets := []*goqu.SelectDataset{
		d.From(t).Select(goqu.COUNT(goqu.Star())),
		d.From(t).Where(txType.Eq("DEPOSIT")).Limit(5),
		d.From(t).Where(goqu.C("amount").Gt(1000)).Limit(5),
		d.From(t).Select(txType, goqu.COUNT(goqu.Star())).GroupBy(txType),
	}

	queries := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		sql, _, err := ds.ToSQL()
		if err != nil {
			return nil, fmt.Errorf("building default query: %w", err)
		}
		queries = append(queries, sql)
	}
	return queries, nil
}

// LoadQueries reads one query per line from path. Blank lines and lines
// starting with # are skipped.
func LoadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()

	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCatalog)
	}
	return queries, nil
}
