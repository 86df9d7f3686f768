package score

import (
	"encoding/json"
	"fmt"
	"io"
)

type layoutDocument struct {
	Pages *[]layoutPage `json:"pages"`
}

type layoutPage struct {
	Size     Size    `json:"size"`
	Measures *[]Rect `json:"measures"`
}

// LoadLayout decodes a measure-box document. Every page must carry a
// "measures" list; an empty list is allowed.
func LoadLayout(r io.Reader) (Layout, error) {
	var doc layoutDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Layout{}, fmt.Errorf("%w: decode layout: %v", ErrMalformedInput, err)
	}
	if doc.Pages == nil {
		return Layout{}, malformed("layout has no \"pages\" list")
	}

	layout := Layout{Pages: make([]Page, 0, len(*doc.Pages))}
	for i, p := range *doc.Pages {
		if p.Measures == nil {
			return Layout{}, malformed("page %d has no \"measures\" list", i)
		}
		if p.Size.Width < 0 || p.Size.Height < 0 {
			return Layout{}, malformed("page %d has negative size %gx%g", i, p.Size.Width, p.Size.Height)
		}
		measures := make([]Rect, len(*p.Measures))
		copy(measures, *p.Measures)
		layout.Pages = append(layout.Pages, Page{Size: p.Size, Measures: measures})
	}
	return layout, nil
}
