package rules

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var configSchema string

// Load reads, schema-validates, decodes and semantically validates a
// configuration file. Any violation is returned as an error; nothing
// in the file is recoverable at this stage.
func Load(path string) (*Config, error) {
	cfg, errs, err := Check(path)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		joined := make([]error, len(errs))
		for i := range errs {
			joined[i] = errs[i]
		}
		return nil, fmt.Errorf("configuration invalid: %w", joinErrors(joined))
	}
	return cfg, nil
}

// Check performs the same pipeline as Load but returns semantic
// violations as a slice so callers (the validate command) can list
// every problem at once. The error return covers I/O, schema and
// decode failures, which always stop the pipeline.
func Check(path string) (*Config, []*ConfigError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	if err := validateSchema(path, data); err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()

	return &cfg, Validate(&cfg), nil
}

// validateSchema unifies the YAML document with the embedded CUE
// schema. Schema violations carry every CUE error detail so the user
// sees all mismatches, not just the first.
func validateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Config: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return &ConfigError{Code: ErrCodeSchema, Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &ConfigError{Code: ErrCodeSchema, Message: fmt.Sprintf("build yaml: %v", err)}
	}

	unified := def.Unify(doc)
	if err := unified.Validate(); err != nil {
		return &ConfigError{
			Code:    ErrCodeSchema,
			Message: cueerrors.Details(err, nil),
		}
	}
	return nil
}

// joinErrors folds multiple config errors into one error value while
// keeping each message on its own line.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "\n"
		}
		msg += e.Error()
	}
	return fmt.Errorf("%s", msg)
}
