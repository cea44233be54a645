package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	manifestschema "github.com/Paintersrp/launchpad/schema"
)

const servicesSchemaURL = "services.v1.json"

var (
	schemaOnce     sync.Once
	servicesSchema *jsonschema.Schema
	schemaErr      error
)

// SchemaIssue is one schema violation. Service is empty for document-level
// problems such as a missing version.
type SchemaIssue struct {
	Service string
	Index   int
	Field   string
	Message string
}

func (i SchemaIssue) String() string {
	var where string
	switch {
	case i.Index < 0:
		where = "config"
	case i.Service != "":
		where = fmt.Sprintf("service %q", i.Service)
	default:
		where = fmt.Sprintf("service #%d", i.Index+1)
	}
	if i.Field != "" {
		where += " " + i.Field
	}
	return where + ": " + i.Message
}

// SchemaError lists every schema violation found in a service list.
type SchemaError struct {
	Issues []SchemaIssue
}

func (e *SchemaError) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		lines = append(lines, "- "+issue.String())
	}
	return "schema validation failed:\n" + strings.Join(lines, "\n")
}

func loadServicesSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(servicesSchemaURL, bytes.NewReader(manifestschema.ServicesV1Schema)); err != nil {
			schemaErr = fmt.Errorf("add services schema: %w", err)
			return
		}
		servicesSchema, schemaErr = compiler.Compile(servicesSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile services schema: %w", schemaErr)
		}
	})
	return servicesSchema, schemaErr
}

func validateAgainstSchema(doc map[string]any) error {
	schema, err := loadServicesSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so YAML integers arrive as json.Number.
	var normalized any
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("prepare config for validation: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&normalized); err != nil {
		return fmt.Errorf("prepare config for validation: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		vErr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return fmt.Errorf("schema validation failed: %w", err)
		}
		return &SchemaError{Issues: collectIssues(doc, vErr, nil)}
	}
	return nil
}

func collectIssues(doc map[string]any, err *jsonschema.ValidationError, out []SchemaIssue) []SchemaIssue {
	// Wrapper errors only point at their causes.
	if len(err.Causes) == 0 || !strings.HasPrefix(err.Message, "doesn't validate with") {
		out = append(out, issueAt(doc, err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		out = collectIssues(doc, cause, out)
	}
	return out
}

// issueAt maps a JSON pointer such as /services/1/healthCheck/maxAttempts to
// the service it belongs to and the dotted field path inside it.
func issueAt(doc map[string]any, ptr, message string) SchemaIssue {
	issue := SchemaIssue{Index: -1, Message: message}
	segments := pointerSegments(ptr)
	if len(segments) >= 2 && segments[0] == "services" {
		if idx, err := strconv.Atoi(segments[1]); err == nil {
			issue.Index = idx
			issue.Service = serviceNameAt(doc, idx)
			segments = segments[2:]
		}
	}
	issue.Field = strings.Join(segments, ".")
	return issue
}

func pointerSegments(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}

func serviceNameAt(doc map[string]any, idx int) string {
	services, _ := doc["services"].([]any)
	if idx < 0 || idx >= len(services) {
		return ""
	}
	svc, _ := services[idx].(map[string]any)
	name, _ := svc["name"].(string)
	return name
}
