package httpapi

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request schema names.
const (
	schemaUpdate       = "update"
	schemaQuantiles    = "quantiles"
	schemaRanks        = "ranks"
	schemaDistribution = "distribution"
	schemaBounds       = "bounds"
)

// ErrInvalidRequest is returned for bodies that are not valid JSON or do not
// match the endpoint's schema.
var ErrInvalidRequest = errors.New("httpapi: invalid request")

const maxReportedViolations = 5

type schemaSet map[string]*gojsonschema.Schema

func loadSchemas() (schemaSet, error) {
	names := []string{schemaUpdate, schemaQuantiles, schemaRanks, schemaDistribution, schemaBounds}
	set := make(schemaSet, len(names))

	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}

		set[name] = schema
	}

	return set, nil
}

// validate checks body against the named schema and reports the first few
// violations in the error.
func (ss schemaSet) validate(name string, body []byte) error {
	result, err := ss[name].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if result.Valid() {
		return nil
	}

	violations := result.Errors()
	msgs := make([]string, 0, min(len(violations), maxReportedViolations))

	for _, v := range violations[:cap(msgs)] {
		msgs = append(msgs, v.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}
