package document

import (
	"encoding/json"
	"fmt"
)

// Marshal serializes the document to the persisted snapshot format.
func Marshal(d *Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Unmarshal parses the persisted snapshot format back into a model and
// validates the invariants the editor relies on.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks structural invariants: contiguous 1-based page numbers,
// per-page unique element ids, and a variant payload matching each element's
// type tag.
func (d *Document) Validate() error {
	for i, p := range d.Pages {
		if p.Number != i+1 {
			return fmt.Errorf("page %d: number %d out of sequence", i+1, p.Number)
		}
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("page %d: non-positive dimensions %gx%g", p.Number, p.Width, p.Height)
		}
		seen := make(map[string]bool, len(p.Elements))
		for _, e := range p.Elements {
			if seen[e.ID] {
				return fmt.Errorf("page %d: duplicate element id %s", p.Number, e.ID)
			}
			seen[e.ID] = true
			if err := e.validate(); err != nil {
				return fmt.Errorf("page %d: element %s: %w", p.Number, e.ID, err)
			}
		}
	}
	return nil
}

func (e *Element) validate() error {
	switch e.Type {
	case ElementText:
		if e.Text == nil {
			return fmt.Errorf("text element missing text attributes")
		}
	case ElementImage:
		if e.Image == nil {
			return fmt.Errorf("image element missing image attributes")
		}
	case ElementRectangle, ElementCircle, ElementLine:
		if e.Shape == nil {
			return fmt.Errorf("%s element missing shape attributes", e.Type)
		}
	default:
		return fmt.Errorf("unknown element type %q", e.Type)
	}
	return nil
}
