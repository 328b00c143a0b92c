package particle

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes and validates an effect definition from YAML.
//
// Parameters:
//   - data: YAML document
//   - name: Name used for diagnostics when the document has no name field
//
// Returns:
//   - *Definition: Validated, immutable definition tree
//   - error: ValidationErrors listing every offending field path, or a YAML syntax error
//
// Example usage:
//
//	def, err := Parse(data, "fireworks")
//	var verrs ValidationErrors
//	if errors.As(err, &verrs) {
//	    for _, e := range verrs {
//	        fmt.Println(e.Path, e.Msg)
//	    }
//	}
func Parse(data []byte, name string) (*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse effect %s: %w", name, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ValidationErrors{{Msg: "empty effect document"}}
	}

	d := &decoder{}
	def := d.decodeDefinition(doc.Content[0], name)
	if len(d.errs) > 0 {
		return nil, d.errs
	}
	return def, nil
}

// ParseFile reads and parses an effect definition from disk.
func ParseFile(filePath string) (*Definition, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read effect file %s: %w", filePath, err)
	}
	def, err := Parse(data, effectName(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to load effect %s: %w", filePath, err)
	}
	return def, nil
}

// Load reads and parses an effect definition from fsys.
// The name may omit the .yaml extension.
func Load(fsys fs.FS, name string) (*Definition, error) {
	p := name
	if path.Ext(p) == "" {
		p += ".yaml"
	}
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read effect %s: %w", p, err)
	}
	def, err := Parse(data, effectName(p))
	if err != nil {
		return nil, fmt.Errorf("failed to load effect %s: %w", p, err)
	}
	return def, nil
}

// effectName strips directories and extension: "effects/fire.yaml" -> "fire".
func effectName(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
