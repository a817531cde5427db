package protocol

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

var schemaFiles = map[string]string{
	TypeHello:   "hello.schema.json",
	TypeWelcome: "welcome.schema.json",
	"COMMAND":   "command.schema.json",
}

func compiled() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas = make(map[string]*jsonschema.Schema, len(schemaFiles))
		for key, name := range schemaFiles {
			b, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = err
				return
			}
			s, err := jsonschema.CompileString(name, string(b))
			if err != nil {
				schemasErr = fmt.Errorf("%s: %w", name, err)
				return
			}
			schemas[key] = s
		}
	})
	return schemas, schemasErr
}

// Validate checks a raw message against the schema for its type. Commands
// share one schema. The returned error wraps ErrInvalid.
func Validate(raw []byte) error {
	base, err := DecodeBase(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	key := base.Type
	if IsCommand(key) {
		key = "COMMAND"
	}
	all, err := compiled()
	if err != nil {
		return err
	}
	s, ok := all[key]
	if !ok {
		return fmt.Errorf("%w: unknown message type %q", ErrInvalid, base.Type)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
