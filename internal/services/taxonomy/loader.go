// Package taxonomy loads the routing taxonomy (YAML) and the analysis schema
// (JSON) into typed models. Both loaders are lenient: missing or ill-typed
// keys become empty values so routing degrades toward the Others fallback
// instead of failing.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/tradeprep/internal/models"
)

//go:embed defaults/taxonomy_v1.yaml
var defaultTaxonomy []byte

//go:embed defaults/analysis_schema_v1.json
var defaultAnalysisSchema []byte

// DefaultTaxonomy returns the embedded taxonomy.
func DefaultTaxonomy() models.Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// DefaultAnalysisSchema returns the embedded analysis schema.
func DefaultAnalysisSchema() models.AnalysisSchema {
	s, err := ParseAnalysisSchema(defaultAnalysisSchema)
	if err != nil {
		panic(fmt.Sprintf("embedded analysis schema is invalid: %v", err))
	}
	return s
}

// LoadTaxonomy reads a taxonomy file; an empty path returns the embedded default.
func LoadTaxonomy(path string) (models.Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Taxonomy{}, fmt.Errorf("failed to read taxonomy %s: %w", path, err)
	}
	t, err := ParseTaxonomy(data)
	if err != nil {
		return models.Taxonomy{}, fmt.Errorf("failed to parse taxonomy %s: %w", path, err)
	}
	return t, nil
}

// LoadAnalysisSchema reads a schema file; an empty path returns the embedded default.
func LoadAnalysisSchema(path string) (models.AnalysisSchema, error) {
	if path == "" {
		return DefaultAnalysisSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.AnalysisSchema{}, fmt.Errorf("failed to read analysis schema %s: %w", path, err)
	}
	s, err := ParseAnalysisSchema(data)
	if err != nil {
		return models.AnalysisSchema{}, fmt.Errorf("failed to parse analysis schema %s: %w", path, err)
	}
	return s, nil
}

// ParseTaxonomy decodes taxonomy YAML. Only syntax errors are reported;
// shape problems are resolved by these rules:
//   - a non-mapping document yields an empty taxonomy
//   - override keys are upper-cased, empty targets are skipped
//   - keywords are lower-cased, tickers upper-cased, blanks dropped
//   - a scalar where a list is expected becomes a one-element list
//   - domain order follows the document; repeated names keep the first entry
func ParseTaxonomy(data []byte) (models.Taxonomy, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return models.Taxonomy{}, err
	}

	tax := models.Taxonomy{
		TickerDomainOverrides: map[string]string{},
		DomainCategories:      []models.DomainCategory{},
	}

	doc := documentBody(&root)
	if doc == nil || doc.Kind != yaml.MappingNode {
		return tax, nil
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i].Value, doc.Content[i+1]
		switch key {
		case "version":
			tax.Version = scalar(value)
		case "asset_type_fallback":
			tax.AssetTypeFallback = scalar(value)
		case "ticker_domain_overrides":
			eachPair(value, func(k string, v *yaml.Node) {
				ticker := strings.ToUpper(strings.TrimSpace(k))
				if domain := scalar(v); ticker != "" && domain != "" {
					tax.TickerDomainOverrides[ticker] = domain
				}
			})
		case "domain_categories":
			seen := map[string]bool{}
			eachPair(value, func(name string, cfg *yaml.Node) {
				name = strings.TrimSpace(name)
				if name == "" || seen[name] {
					return
				}
				seen[name] = true
				domain := models.DomainCategory{Name: name, Keywords: []string{}, Tickers: []string{}}
				eachPair(cfg, func(field string, v *yaml.Node) {
					switch field {
					case "keywords":
						domain.Keywords = mapStrings(stringList(v), strings.ToLower)
					case "tickers":
						domain.Tickers = mapStrings(stringList(v), strings.ToUpper)
					}
				})
				tax.DomainCategories = append(tax.DomainCategories, domain)
			})
		}
	}

	return tax, nil
}

func documentBody(root *yaml.Node) *yaml.Node {
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		return root.Content[0]
	}
	return root
}

func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		fn(node.Content[i].Value, node.Content[i+1])
	}
}

func scalar(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return ""
	}
	return strings.TrimSpace(node.Value)
}

func stringList(node *yaml.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if s := scalar(node); s != "" {
			return []string{s}
		}
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func mapStrings(values []string, fn func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fn(v))
	}
	return out
}

// ParseAnalysisSchema decodes the analysis schema JSON with the same lenient
// rules as ParseTaxonomy: wrong types become empty values.
func ParseAnalysisSchema(data []byte) (models.AnalysisSchema, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.AnalysisSchema{}, err
	}

	schema := models.AnalysisSchema{
		Version:        asString(raw["version"]),
		DomainToSchema: map[string]string{},
		Schemas:        map[string]models.SchemaDefinition{},
	}

	if mapping, ok := raw["domain_to_schema"].(map[string]interface{}); ok {
		for domain, id := range mapping {
			if s := asString(id); s != "" {
				schema.DomainToSchema[strings.TrimSpace(domain)] = s
			}
		}
	}

	if schemas, ok := raw["schemas"].(map[string]interface{}); ok {
		for id, def := range schemas {
			fields, _ := def.(map[string]interface{})
			schema.Schemas[strings.TrimSpace(id)] = models.SchemaDefinition{
				RequiredMetrics:      uniqueStrings(asStringList(fields["required_metrics"])),
				AnalysisQuestions:    uniqueStrings(asStringList(fields["analysis_questions"])),
				InvalidationTriggers: asStringList(fields["invalidation_triggers"]),
			}
		}
	}

	return schema, nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64, bool:
		return strings.TrimSpace(fmt.Sprint(s))
	}
	return ""
}

func asStringList(v interface{}) []string {
	out := []string{}
	switch list := v.(type) {
	case []interface{}:
		for _, item := range list {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(list); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// uniqueStrings drops repeats, keeping first-seen order. Metrics and
// questions are keyed by name in reports, so each counts once.
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
