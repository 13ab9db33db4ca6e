package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata describes a model file: tensor names and shapes and its label set.
// It lives next to the model as JSON.
type Metadata struct {
	InputName    string   `json:"input_name"`
	OutputName   string   `json:"output_name"`
	InputShape   []int64  `json:"input_shape"`
	OutputShape  []int64  `json:"output_shape"`
	Classes      []string `json:"classes"`
	ImageSize    int      `json:"image_size"`
	ApplySoftmax bool     `json:"apply_softmax"`
}

// LoadMetadata reads and validates a metadata file. Missing tensor names default to
// "input" and "output"; a missing class list falls back to defaultClasses.
func LoadMetadata(path string, defaultClasses []string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if md.InputName == "" {
		md.InputName = "input"
	}
	if md.OutputName == "" {
		md.OutputName = "output"
	}
	if len(md.Classes) == 0 {
		md.Classes = append([]string(nil), defaultClasses...)
	}
	if len(md.InputShape) == 0 {
		return nil, fmt.Errorf("metadata %s: input_shape is required", path)
	}
	for _, d := range md.InputShape {
		if d < 1 {
			return nil, fmt.Errorf("metadata %s: input_shape %v has non-positive dimension", path, md.InputShape)
		}
	}
	if len(md.Classes) == 0 {
		return nil, fmt.Errorf("metadata %s: no classes", path)
	}
	return &md, nil
}
