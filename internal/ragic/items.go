package ragic

import "encoding/base64"

// BinaryProperty is the binary key a downloaded file is stored under.
const BinaryProperty = "downloadedFile"

// Item is one element of a node's output list.
type Item struct {
	JSON   map[string]any   `json:"json"`
	Binary map[string]*File `json:"binary,omitempty"`
}

// Items shapes a decoded JSON response into output items: one per array
// element, or a single item for an object. Scalars are wrapped as {"value": v}.
func Items(v any) []Item {
	switch val := v.(type) {
	case nil:
		return []Item{}
	case []any:
		items := make([]Item, 0, len(val))
		for _, e := range val {
			items = append(items, toItem(e))
		}
		return items
	default:
		return []Item{toItem(val)}
	}
}

func toItem(v any) Item {
	if m, ok := v.(map[string]any); ok {
		return Item{JSON: m}
	}
	return Item{JSON: map[string]any{"value": v}}
}

// FileItem wraps a downloaded file: its metadata as json, its contents as binary.
func FileItem(f *File) Item {
	return Item{
		JSON:   f.Metadata(),
		Binary: map[string]*File{BinaryProperty: f},
	}
}

// Map renders the item with base64 binary data, the form expressions can index into.
func (i Item) Map() map[string]any {
	m := map[string]any{"json": i.JSON}
	if len(i.Binary) > 0 {
		binary := make(map[string]any, len(i.Binary))
		for key, f := range i.Binary {
			meta := f.Metadata()
			meta["data"] = base64.StdEncoding.EncodeToString(f.Data)
			binary[key] = meta
		}
		m["binary"] = binary
	}
	return m
}
