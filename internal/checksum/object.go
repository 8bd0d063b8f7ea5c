package checksum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// HashObject digests the canonical JSON encoding of value: object keys are
// sorted and null members are omitted at every depth. Null array elements
// are kept because removing them would change positions.
func (h *Hasher) HashObject(ctx context.Context, value any, opts ...Option) ([]byte, error) {
	if isNil(value) {
		return nil, fmt.Errorf("%w: value", domain.ErrNilArgument)
	}

	encoded, err := CanonicalJSON(value)
	if err != nil {
		return nil, err
	}

	return h.HashStream(ctx, bytes.NewReader(encoded), opts...)
}

// CanonicalJSON returns the deterministic encoding hashed by HashObject.
func CanonicalJSON(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serialize value: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var tree any
	if err := decoder.Decode(&tree); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}

	encoded, err := json.Marshal(dropNulls(tree))
	if err != nil {
		return nil, fmt.Errorf("serialize value: %w", err)
	}
	return encoded, nil
}

func dropNulls(node any) any {
	switch typed := node.(type) {
	case map[string]any:
		for key, child := range typed {
			if child == nil {
				delete(typed, key)
				continue
			}
			typed[key] = dropNulls(child)
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = dropNulls(child)
		}
		return typed
	default:
		return node
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
