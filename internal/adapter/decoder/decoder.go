// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/data"
)

// Decoder implements domain.Decoder. Field names are matched through the
// `treedb` struct tag, the same one read when converting inserted values.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder. src may be a document, a slice of
// documents, a [domain.Value] or plain Go values.
func (d *Decoder) Decode(src any, tgt any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: data.TagName,
		Result:  tgt,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			d.hook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(d.plain(src))
}

func (d *Decoder) hook(_ reflect.Type, _ reflect.Type, v any) (any, error) {
	return d.plain(v), nil
}

// plain turns treedb types into the maps and slices mapstructure walks.
func (d *Decoder) plain(v any) any {
	switch t := v.(type) {
	case *domain.Document:
		return t.Map()
	case []*domain.Document:
		res := make([]any, len(t))
		for n, doc := range t {
			res[n] = doc.Map()
		}
		return res
	case domain.Value:
		return t.Interface()
	default:
		return v
	}
}
