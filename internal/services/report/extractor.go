package report

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/tradeprep/internal/interfaces"
	"github.com/ternarybob/tradeprep/internal/models"
)

// NoneExtractor extracts nothing, so every metric and question stays missing.
type NoneExtractor struct{}

func (NoneExtractor) Extract(string, models.SchemaDefinition) interfaces.Extraction {
	return interfaces.Extraction{}
}

// MarkdownExtractor reads metrics and answers out of a markdown report:
//   - table rows and "Name: value" lines whose name is a required metric
//   - "Question: answer" lines, or a heading naming a question followed by its section text
type MarkdownExtractor struct {
	md goldmark.Markdown
}

func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{md: goldmark.New(goldmark.WithExtensions(extension.Table))}
}

func (e *MarkdownExtractor) Extract(rawText string, schema models.SchemaDefinition) interfaces.Extraction {
	out := interfaces.Extraction{
		Metrics: make(map[string]interface{}),
		Answers: make(map[string]string),
	}
	if strings.TrimSpace(rawText) == "" {
		return out
	}

	source := []byte(rawText)
	doc := e.md.Parser().Parse(text.NewReader(source))
	w := &walker{
		source:    source,
		metrics:   index(schema.RequiredMetrics),
		questions: index(schema.AnalysisQuestions),
		out:       out,
	}
	_ = ast.Walk(doc, w.walk)
	w.flushSection()
	return out
}

// index maps the normalized form of each name to the name itself.
func index(names []string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[normalizeKey(n)] = n
	}
	return m
}

type walker struct {
	source    []byte
	metrics   map[string]string
	questions map[string]string
	out       interfaces.Extraction

	// section being collected under a question heading
	question string
	level    int
	section  []string
}

func (w *walker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	switch node := n.(type) {
	case *ast.Heading:
		if w.question != "" && node.Level <= w.level {
			w.flushSection()
		}
		if q, ok := w.questions[normalizeKey(string(node.Text(w.source)))]; ok {
			w.flushSection()
			w.question = q
			w.level = node.Level
		}
		return ast.WalkSkipChildren, nil
	case *extast.Table:
		w.handleTable(node)
		return ast.WalkSkipChildren, nil
	case *ast.Paragraph, *ast.TextBlock:
		w.handleLines(n)
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *walker) handleLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := stripInline(string(seg.Value(w.source)))
		if line == "" {
			continue
		}
		if w.question != "" {
			w.section = append(w.section, line)
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		w.assign(key, value)
	}
}

func (w *walker) handleTable(n *extast.Table) {
	var rows [][]string
	var findRows func(node ast.Node)
	findRows = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *extast.TableRow:
				rows = append(rows, w.extractRow(child))
			case *extast.TableHeader:
				findRows(child)
			}
		}
	}
	findRows(n)

	for _, row := range rows {
		if len(row) >= 2 {
			w.assign(row[0], row[1])
		}
	}
}

func (w *walker) extractRow(n ast.Node) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, stripInline(string(cell.Text(w.source))))
		}
	}
	return row
}

func (w *walker) assign(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	k := normalizeKey(key)
	if m, ok := w.metrics[k]; ok {
		if _, seen := w.out.Metrics[m]; !seen {
			w.out.Metrics[m] = metricValue(value)
		}
		return
	}
	if q, ok := w.questions[k]; ok {
		if _, seen := w.out.Answers[q]; !seen {
			w.out.Answers[q] = value
		}
	}
}

func (w *walker) flushSection() {
	if w.question != "" && len(w.section) > 0 {
		if _, seen := w.out.Answers[w.question]; !seen {
			w.out.Answers[w.question] = strings.Join(w.section, " ")
		}
	}
	w.question = ""
	w.level = 0
	w.section = nil
}

// metricValue returns a number when the value parses as one, else the text.
func metricValue(value string) interface{} {
	clean := strings.TrimSuffix(strings.ReplaceAll(value, ",", ""), "%")
	if f, err := strconv.ParseFloat(strings.TrimSpace(clean), 64); err == nil {
		return f
	}
	return value
}

var inlineMarks = strings.NewReplacer("**", "", "__", "", "`", "")

func stripInline(s string) string {
	s = strings.TrimSpace(inlineMarks.Replace(s))
	return strings.TrimLeft(s, "-*+ ")
}

func normalizeKey(s string) string {
	s = strings.ToLower(stripInline(s))
	s = strings.TrimRight(s, "?:. ")
	return strings.Join(strings.Fields(s), " ")
}
