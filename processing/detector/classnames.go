package detector

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"imagedetect/internal/models"
)

// ClassNames maps class ids to human-readable names.
type ClassNames map[int]string

// LoadClassNames reads the "names" entry of an ultralytics-style data.yaml,
// given either as a list or as an id-keyed map.
func LoadClassNames(path string) (ClassNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	return ParseClassNames(data)
}

func ParseClassNames(data []byte) (ClassNames, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse class names: %w", err)
	}

	names := make(ClassNames)

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := doc.Names.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode class list: %w", err)
		}
		for i, n := range list {
			names[i] = n
		}
	case yaml.MappingNode:
		var m map[int]string
		if err := doc.Names.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode class map: %w", err)
		}
		for id, n := range m {
			names[id] = n
		}
	case 0:
		return nil, fmt.Errorf("parse class names: no names entry")
	default:
		return nil, fmt.Errorf("parse class names: unexpected names kind %d", doc.Names.Kind)
	}

	return names, nil
}

// Resolve picks the box label, then the server lookup, then the local file.
func (n ClassNames) Resolve(box models.DetectedBox, server map[string]string) string {
	if box.ClassName != "" {
		return box.ClassName
	}
	if name, ok := server[strconv.Itoa(box.ClassID)]; ok && name != "" {
		return name
	}
	if name, ok := n[box.ClassID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("class %d", box.ClassID)
}
