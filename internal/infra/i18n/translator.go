package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator renders user-facing bot texts from a yaml message catalog.
type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<name>.yaml from fsys.
func NewTranslator(fsys fs.FS, name string) (*Translator, error) {
	filePath := filepath.Join("locales", fmt.Sprintf("%s.yaml", name))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read message file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

// Default returns the built-in English catalog.
func Default() (*Translator, error) {
	return NewTranslator(LocalesFS, "en")
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse message file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key formatted with args, or the key itself when unknown.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
