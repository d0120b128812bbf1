package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Items travel as google.protobuf.Struct using their JSON field names, so
// the wire shape matches the YAML/JSON config shape.

func itemToStruct(item Item) (*structpb.Struct, error) {
	m, err := toMap(item)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func itemFromStruct(s *structpb.Struct) (Item, error) {
	var item Item
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return item, fmt.Errorf("failed to encode item: %w", err)
	}
	if err := json.Unmarshal(data, &item); err != nil {
		return item, fmt.Errorf("failed to decode item: %w", err)
	}
	return item, nil
}

func itemsToList(items []Item) (*structpb.ListValue, error) {
	values := make([]any, 0, len(items))
	for _, item := range items {
		m, err := toMap(item)
		if err != nil {
			return nil, err
		}
		values = append(values, m)
	}
	return structpb.NewList(values)
}

func itemsFromList(list *structpb.ListValue) ([]Item, error) {
	items := make([]Item, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("list entry is %T, want struct", v.GetKind())
		}
		item, err := itemFromStruct(s)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func toMap(item Item) (map[string]any, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return m, nil
}
