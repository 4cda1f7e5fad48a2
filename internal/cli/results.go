package cli

import (
	"time"

	"github.com/trylock/viewer-sub003/internal/entity"
	"github.com/trylock/viewer-sub003/internal/value"
)

// resultItem is the serialized form of an entity in JSON and YAML output.
type resultItem struct {
	Path       string         `json:"path" yaml:"path"`
	Directory  bool           `json:"directory,omitempty" yaml:"directory,omitempty"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
}

func exportEntity(e entity.Entity, columns []string) resultItem {
	item := resultItem{
		Path:       e.Path(),
		Directory:  e.IsDirectory(),
		Attributes: map[string]any{},
	}
	if columns == nil {
		for _, a := range e.Attributes() {
			item.Attributes[a.Name] = exportValue(a.Value)
		}
		return item
	}
	for _, name := range columns {
		if a, ok := e.Attribute(name); ok {
			item.Attributes[name] = exportValue(a.Value)
		} else {
			item.Attributes[name] = nil
		}
	}
	return item
}

func exportEntities(entities []entity.Entity, columns []string) []resultItem {
	out := make([]resultItem, len(entities))
	for i, e := range entities {
		out[i] = exportEntity(e, columns)
	}
	return out
}

// exportValue converts v to a type the JSON and YAML encoders render
// naturally.
func exportValue(v value.Value) any {
	switch v.Kind() {
	case value.KindInt:
		return v.AsInt()
	case value.KindReal:
		return v.AsReal()
	case value.KindString:
		return v.AsString()
	case value.KindDateTime:
		return v.AsTime().Format(time.RFC3339)
	}
	return nil
}
