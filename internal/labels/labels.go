// Package labels provides the immutable label table mapping classifier
// output indices to human-readable attribute labels.
package labels

import (
	"embed"
	"encoding/json"
	"os"

	"github.com/jhelttu/closet-go/internal/errors"
)

// Attribute identifies one of the six independent label groups a garment
// is classified into.
type Attribute string

const (
	SubCategory Attribute = "subCategory"
	ArticleType Attribute = "articleType"
	Gender      Attribute = "gender"
	BaseColour  Attribute = "baseColour"
	Season      Attribute = "season"
	Usage       Attribute = "usage"
)

// Attributes lists the groups in model head order. The multi-head model
// emits its output tensors in this exact order, fixed at training time.
var Attributes = [...]Attribute{SubCategory, ArticleType, Gender, BaseColour, Season, Usage}

//go:embed data/label_classes.json
var labelFiles embed.FS

// Table is the immutable label table. Loaded once at startup and shared
// read-only across concurrent classifications.
type Table struct {
	groups map[Attribute][]string
}

// Load returns the label table from the embedded classes file.
func Load() (*Table, error) {
	data, err := labelFiles.ReadFile("data/label_classes.json")
	if err != nil {
		return nil, errors.New(err).
			Component("labels").
			Category(errors.CategoryLabelLoad).
			Build()
	}
	return parse(data)
}

// LoadFile returns a label table read from an external classes file,
// used when a custom model ships its own label set.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("labels").
			Category(errors.CategoryLabelLoad).
			Context("path", path).
			Build()
	}
	return parse(data)
}

func parse(data []byte) (*Table, error) {
	var raw map[Attribute][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(err).
			Component("labels").
			Category(errors.CategoryLabelLoad).
			Build()
	}

	for _, attr := range Attributes {
		group, ok := raw[attr]
		if !ok || len(group) == 0 {
			return nil, errors.Newf("label table is missing attribute group %q", attr).
				Component("labels").
				Category(errors.CategoryLabelLoad).
				Build()
		}
		seen := make(map[string]struct{}, len(group))
		for _, label := range group {
			if _, dup := seen[label]; dup {
				return nil, errors.Newf("duplicate label %q in attribute group %q", label, attr).
					Component("labels").
					Category(errors.CategoryLabelLoad).
					Build()
			}
			seen[label] = struct{}{}
		}
	}

	return &Table{groups: raw}, nil
}

// Resolve maps a class index to its label for the given attribute group.
// An out-of-range index is a fatal classifier-output error, never clamped.
func (t *Table) Resolve(attr Attribute, index int) (string, error) {
	group, ok := t.groups[attr]
	if !ok {
		return "", errors.Newf("unknown attribute group %q", attr).
			Component("labels").
			Category(errors.CategoryLabelIndex).
			Build()
	}
	if index < 0 || index >= len(group) {
		return "", errors.Newf("class index %d out of range for attribute %q (%d labels)", index, attr, len(group)).
			Component("labels").
			Category(errors.CategoryLabelIndex).
			Context("attribute", string(attr)).
			Context("index", index).
			Context("group_size", len(group)).
			Build()
	}
	return group[index], nil
}

// Size returns the number of labels in the given attribute group.
func (t *Table) Size(attr Attribute) int {
	return len(t.groups[attr])
}

// Labels returns a copy of the label list for the given attribute group.
func (t *Table) Labels(attr Attribute) []string {
	group := t.groups[attr]
	out := make([]string, len(group))
	copy(out, group)
	return out
}
