// Package schema checks raw world documents against their JSON schemas
// before they are parsed.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names a document type.
type Kind string

const (
	Room     Kind = "room"
	Schedule Kind = "schedule"
)

//go:embed *.schema.json
var files embed.FS

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func compile() {
	compiled = make(map[Kind]*jsonschema.Schema)
	for _, kind := range []Kind{Room, Schedule} {
		name := string(kind) + ".schema.json"
		data, err := files.ReadFile(name)
		if err != nil {
			compileErr = fmt.Errorf("failed to read %s: %w", name, err)
			return
		}
		s, err := jsonschema.CompileString(name, string(data))
		if err != nil {
			compileErr = fmt.Errorf("failed to compile %s: %w", name, err)
			return
		}
		compiled[kind] = s
	}
}

// Validate checks data, a JSON document of the given kind.
func Validate(kind Kind, data []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s document does not match schema: %w", kind, err)
	}
	return nil
}
