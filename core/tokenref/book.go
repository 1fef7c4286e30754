package tokenref

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Book maps operator-chosen aliases to token references.
type Book struct {
	byName map[string]Ref
}

type bookFile struct {
	Tokens map[string]string `yaml:"tokens"`
}

// LoadBook reads a YAML alias file of the form:
//
//	tokens:
//	  alphaUSD: 1
//	  betaUSD: "0x20c0000000000000000000000000000000000002"
func LoadBook(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBook(data)
}

// ParseBook decodes alias YAML.
func ParseBook(data []byte) (*Book, error) {
	var raw bookFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode token book: %w", err)
	}
	book := &Book{byName: make(map[string]Ref, len(raw.Tokens))}
	for name, value := range raw.Tokens {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("token book: empty alias")
		}
		ref, err := Parse(value)
		if err != nil {
			return nil, fmt.Errorf("token book alias %q: %w", name, err)
		}
		book.byName[key] = ref
	}
	return book, nil
}

// Lookup returns the reference registered under name.
func (b *Book) Lookup(name string) (Ref, bool) {
	if b == nil {
		return Ref{}, false
	}
	ref, ok := b.byName[strings.ToLower(strings.TrimSpace(name))]
	return ref, ok
}

// Parse resolves an alias first and falls back to Parse.
func (b *Book) Parse(value string) (Ref, error) {
	if ref, ok := b.Lookup(value); ok {
		return ref, nil
	}
	return Parse(value)
}

// Names returns the sorted aliases.
func (b *Book) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.byName))
	for name := range b.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
