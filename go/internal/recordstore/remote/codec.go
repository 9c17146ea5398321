package remote

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/rendezvous/go/internal/recordstore"
)

// Envelope keys of the Struct payloads.
const (
	keyCode   = "code"
	keyKind   = "kind"
	keyFields = "fields"
)

func fieldsToStruct(fields recordstore.Fields) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, raw := range fields {
		v := &structpb.Value{}
		if err := v.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out.Fields[k] = v
	}
	return out, nil
}

func structToFields(s *structpb.Struct) (recordstore.Fields, error) {
	out := make(recordstore.Fields, len(s.GetFields()))
	for k, v := range s.GetFields() {
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

func envelope(code string, fields recordstore.Fields, extra map[string]string) (*structpb.Struct, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		keyCode: structpb.NewStringValue(code),
	}}
	for k, v := range extra {
		msg.Fields[k] = structpb.NewStringValue(v)
	}
	if fields != nil {
		body, err := fieldsToStruct(fields)
		if err != nil {
			return nil, err
		}
		msg.Fields[keyFields] = structpb.NewStructValue(body)
	}
	return msg, nil
}

func stringField(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func fieldsField(msg *structpb.Struct) (recordstore.Fields, error) {
	return structToFields(msg.GetFields()[keyFields].GetStructValue())
}
