package db

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
)

// TemplateData is available to query templates as {{.QueryID}} and {{.UUID}}.
type TemplateData struct {
	QueryID int
	UUID    string
}

// templateEngine parses query templates and backs their helper functions.
type templateEngine struct {
	mu    sync.RWMutex
	lines map[string][]string
	funcs template.FuncMap
}

func newTemplateEngine() *templateEngine {
	e := &templateEngine{lines: make(map[string][]string)}
	e.funcs = template.FuncMap{
		"randomInt":    randomInt,
		"randomChoice": randomChoice,
		"randomUUID":   randomUUID,
		"uuid":         randomUUID,
		"randomLine":   e.randomLine,
	}
	return e
}

var shorthand = strings.NewReplacer(
	"{{queryID}}", "{{.QueryID}}",
	"{{uuid}}", "{{.UUID}}",
)

func (e *templateEngine) parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(e.funcs).Parse(shorthand.Replace(text))
}

func render(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// randomInt returns a value in [lo, hi).
func randomInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo)
}

func randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.IntN(len(choices))]
}

func randomUUID() string {
	return uuid.NewString()
}

// randomLine picks a non-empty line of path. Files are read once and cached.
func (e *templateEngine) randomLine(path string) (string, error) {
	e.mu.RLock()
	lines, ok := e.lines[path]
	e.mu.RUnlock()

	if !ok {
		var err error
		if lines, err = e.load(path); err != nil {
			return "", err
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[rand.IntN(len(lines))], nil
}

func (e *templateEngine) load(path string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lines, ok := e.lines[path]; ok {
		return lines, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	e.lines[path] = lines
	return lines, nil
}
