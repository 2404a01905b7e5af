package story

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load читает документ истории с диска и строит граф.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story file %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", path, err)
	}
	return g, nil
}

// Parse разбирает YAML (или JSON, он подмножество YAML) и строит граф.
// Неизвестные поля считаются ошибкой, чтобы опечатки автора не терялись молча.
func Parse(data []byte) (*Graph, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document is empty", ErrInvalidStory)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidStory, err)
	}
	return NewGraph(&doc)
}
