package noproto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// encodeDefaultFromJSON converts a JSON-decoded default value (as produced
// by goccy/go-json's any-typed unmarshal: float64 for numbers, string,
// bool, []any, map[string]any) into the same raw encoded form stored for
// an in-buffer value of that schema node's kind.
func encodeDefaultFromJSON(n *SchemaNode, raw any) ([]byte, error) {
	switch n.Kind {
	case KindBool:
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return encodeBool(v), nil

	case KindI8:
		return encodeI8(int8(asInt(raw))), mustNumeric(raw)
	case KindI16:
		return encodeI16(int16(asInt(raw))), mustNumeric(raw)
	case KindI32:
		return encodeI32(int32(asInt(raw))), mustNumeric(raw)
	case KindI64:
		return encodeI64(asInt(raw)), mustNumeric(raw)
	case KindU8:
		return encodeU8(uint8(asInt(raw))), mustNumeric(raw)
	case KindU16:
		return encodeU16(uint16(asInt(raw))), mustNumeric(raw)
	case KindU32:
		return encodeU32(uint32(asInt(raw))), mustNumeric(raw)
	case KindU64:
		return encodeU64(uint64(asInt(raw))), mustNumeric(raw)
	case KindF32:
		return encodeF32(float32(asFloat(raw))), mustNumeric(raw)
	case KindF64:
		return encodeF64(asFloat(raw)), mustNumeric(raw)

	case KindDecimal:
		return encodeDecimal(asInt(raw)), mustNumeric(raw)

	case KindGeo:
		g, err := geoFromJSON(raw)
		if err != nil {
			return nil, err
		}
		return encodeGeo(n.GeoSize, g), nil

	case KindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected RFC3339 date string, got %T", raw)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
		return encodeDate(t), nil

	case KindUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected uuid string, got %T", raw)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		return encodeUUID(id), nil

	case KindULID:
		s, ok := raw.(string)
		if !ok || len(s) != 16 {
			return nil, fmt.Errorf("expected 16-byte ulid string")
		}
		var u ULID
		copy(u[:], s)
		return encodeULID(u), nil

	case KindEnum:
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected enum choice name, got %T", raw)
		}
		idx, ok := enumIndexOf(n.EnumChoices, name)
		if !ok {
			return nil, fmt.Errorf("unknown enum choice %q", name)
		}
		return encodeEnumIndex(idx), nil

	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return encodeStringValue(s), nil

	case KindBytes:
		arr, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("expected byte array, got %T", raw)
		}
		out := make([]byte, len(arr))
		for i, v := range arr {
			out[i] = byte(asInt(v))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("kind %s does not support a default value", n.Kind)
	}
}

func mustNumeric(raw any) error {
	switch raw.(type) {
	case float64, float32, int, int64:
		return nil
	default:
		return fmt.Errorf("expected a JSON number, got %T", raw)
	}
}

func asInt(raw any) int64 {
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func asFloat(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func geoFromJSON(raw any) (Geo, error) {
	switch v := raw.(type) {
	case map[string]any:
		lat, _ := v["lat"].(float64)
		lng, _ := v["lng"].(float64)
		return Geo{Lat: lat, Lng: lng}, nil
	case []any:
		if len(v) != 2 {
			return Geo{}, fmt.Errorf("expected [lat, lng] pair")
		}
		return Geo{Lat: asFloat(v[0]), Lng: asFloat(v[1])}, nil
	default:
		return Geo{}, fmt.Errorf("expected geo object or pair, got %T", raw)
	}
}
