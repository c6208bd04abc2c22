package manifest

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// dedupDecode re-encodes data so that, within any one JSON object, a
// repeated key keeps only its last occurrence (last-write-wins). Real-world
// manifests occasionally contain duplicate keys; encoding/json's own
// Unmarshal already does last-write-wins for a single flat object, but it
// silently keeps earlier sibling objects' worth of garbage in slices and
// gets inconsistent across nested objects, so we normalize once up front
// with a single decoder pass and reuse the result for every subsequent
// Unmarshal against the same document.
//
// Any change to this policy should only ever need to happen here.
func dedupDecode(data []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := dedupValue(dec)
	if err != nil {
		return nil, errors.Wrap(err, "dedup decode")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "dedup re-encode")
	}
	return out, nil
}

func dedupValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return dedupFromToken(dec, tok)
}

func dedupFromToken(dec *json.Decoder, tok json.Token) (interface{}, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return dedupObject(dec)
		case '[':
			return dedupArray(dec)
		default:
			return nil, errors.Errorf("unexpected delimiter %q", t)
		}
	default:
		return tok, nil
	}
}

func dedupObject(dec *json.Decoder) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.Errorf("object key is not a string: %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := dedupFromToken(dec, valTok)
		if err != nil {
			return nil, err
		}
		out[key] = val // last occurrence of `key` wins
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return nil, err
	}
	return out, nil
}

func dedupArray(dec *json.Decoder) ([]interface{}, error) {
	var out []interface{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := dedupFromToken(dec, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return nil, err
	}
	return out, nil
}
