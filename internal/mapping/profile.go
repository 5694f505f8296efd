// Package mapping loads and saves column-mapping profiles: YAML files
// binding the canonical fields to the column names of a concrete export.
package mapping

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/andes-audit/concilia/internal/model"
	"github.com/andes-audit/concilia/internal/normalize"
)

// Profile holds one column mapping per source.
type Profile struct {
	Softland model.ColumnMapping `yaml:"softland"`
	Control  model.ColumnMapping `yaml:"control"`
}

// Load reads a profile from a YAML file and checks both mappings are
// complete. An incomplete mapping blocks reconciliation up front rather
// than failing mid-run.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: read profile")
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "mapping: parse profile")
	}

	if missing := p.Softland.MissingFields(); len(missing) > 0 {
		return nil, eris.Errorf("mapping: softland profile incomplete, missing %v", missing)
	}
	if missing := p.Control.MissingFields(); len(missing) > 0 {
		return nil, eris.Errorf("mapping: control profile incomplete, missing %v", missing)
	}
	return &p, nil
}

// Marshal renders a profile as YAML, for writing template files.
func Marshal(p *Profile) ([]byte, error) {
	data, err := yaml.Marshal(p)
	return data, eris.Wrap(err, "mapping: marshal profile")
}

// guessPatterns maps each canonical field to the header fragments that
// usually carry it, in preference order.
var guessPatterns = map[string][]string{
	model.FieldFactura: {"factura", "documento", "numero", "folio"},
	model.FieldRUT:     {"rut"},
	model.FieldMonto:   {"monto", "total", "debe", "valor"},
	model.FieldNombre:  {"proveedor", "razon", "nombre"},
	model.FieldFecha:   {"fecha"},
	model.FieldTipo:    {"tipo"},
}

// Guess proposes a mapping from a header list by fragment matching. The
// result may be incomplete; it is a template for the user to finish, never
// fed to the engine unchecked.
func Guess(headers []string) model.ColumnMapping {
	m := make(model.ColumnMapping, len(guessPatterns))
	used := make(map[string]bool, len(headers))

	for _, field := range []string{
		model.FieldFactura, model.FieldRUT, model.FieldMonto,
		model.FieldNombre, model.FieldFecha, model.FieldTipo,
	} {
		for _, pattern := range guessPatterns[field] {
			if col := findHeader(headers, used, pattern); col != "" {
				m[field] = col
				used[col] = true
				break
			}
		}
	}
	return m
}

func findHeader(headers []string, used map[string]bool, pattern string) string {
	for _, h := range headers {
		if used[h] {
			continue
		}
		if strings.Contains(normalize.Fold(h), pattern) {
			return h
		}
	}
	return ""
}
