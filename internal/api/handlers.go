package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/atlas/internal/models"
)

// FromProtoObservation renders the request payload as the JSON line the
// pipeline decodes.
func FromProtoObservation(obs *structpb.Struct) ([]byte, error) {
	if obs == nil {
		return nil, fmt.Errorf("observation is nil")
	}
	line, err := json.Marshal(obs.AsMap())
	if err != nil {
		return nil, fmt.Errorf("encode observation: %w", err)
	}
	return line, nil
}

// ToProtoRecords converts StageResults into a list of JSON objects using
// their wire field names.
func ToProtoRecords(records []models.StageResult) (*structpb.ListValue, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(records))}
	for _, r := range records {
		fields, err := recordMap(r)
		if err != nil {
			return nil, err
		}
		st, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("convert %s/%s: %w", r.AnchorID, r.Stage, err)
		}
		list.Values = append(list.Values, structpb.NewStructValue(st))
	}
	return list, nil
}

// FromProtoRecords is the inverse of ToProtoRecords.
func FromProtoRecords(list *structpb.ListValue) ([]models.StageResult, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]models.StageResult, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		raw, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		var r models.StageResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func recordMap(r models.StageResult) (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", r.AnchorID, r.Stage, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", r.AnchorID, r.Stage, err)
	}
	return fields, nil
}
