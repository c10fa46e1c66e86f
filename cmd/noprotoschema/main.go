// Command noprotoschema converts a human-authored YAML schema into the
// compact binary or JSON serial forms consumed by noproto.NewFromBytes /
// noproto.NewFromJSON.
package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/only-cliches/noproto"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: noprotoschema <compact|json> <schema.yaml>")
		os.Exit(2)
	}
	format := os.Args[1]
	path := os.Args[2]

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read schema:", err)
		os.Exit(1)
	}

	// YAML is a superset of JSON's data model, so re-marshaling through
	// go-yaml's JSON output mode gives us the same schemaJSON tree
	// ParseSchemaJSON already knows how to build.
	var tree any
	if err := yaml.Unmarshal(src, &tree); err != nil {
		fmt.Fprintln(os.Stderr, "parse yaml:", err)
		os.Exit(1)
	}
	asJSON, err := yaml.MarshalWithOptions(tree, yaml.JSON())
	if err != nil {
		fmt.Fprintln(os.Stderr, "normalize yaml:", err)
		os.Exit(1)
	}

	schema, err := noproto.ParseSchemaJSON(asJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile schema:", err)
		os.Exit(1)
	}

	switch format {
	case "compact":
		os.Stdout.Write(schema.CompileSchema())
	case "json":
		os.Stdout.Write(asJSON)
	default:
		fmt.Fprintln(os.Stderr, "unknown format:", format)
		os.Exit(2)
	}
}
