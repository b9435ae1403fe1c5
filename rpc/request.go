package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Request is one normalized request candidate extracted from a body.
// Method is empty when the candidate carried no usable method name. ID keeps
// the raw bytes of the id member so responses can echo it verbatim.
type Request struct {
	ID     json.RawMessage
	Method string
	Params []json.RawMessage
}

// IsNotification reports whether the candidate asked for no reply: the id
// member is absent, null, false, zero, or an empty string.
func (r *Request) IsNotification() bool {
	id := bytes.TrimSpace(r.ID)
	if len(id) == 0 {
		return true
	}
	switch {
	case bytes.Equal(id, []byte("null")),
		bytes.Equal(id, []byte("false")),
		bytes.Equal(id, []byte(`""`)):
		return true
	}
	var n float64
	if err := json.Unmarshal(id, &n); err == nil && n == 0 {
		return true
	}
	return false
}

// ParseBody normalizes a request body into its ordered request candidates.
//
// A top-level array is a batch with one candidate per element. A top-level
// object without a "method" member is also a batch, iterating the member
// values in document order; an object with "method" is a single request.
// Anything else (scalars, null, malformed JSON) degrades to one empty
// candidate that dispatch will reject as invalid.
func ParseBody(body []byte) []Request {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []Request{{}}
	}
	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return []Request{{}}
		}
		candidates := make([]Request, 0, len(elems))
		for _, elem := range elems {
			candidates = append(candidates, parseCandidate(elem))
		}
		return candidates
	case '{':
		members, err := objectMembers(trimmed)
		if err != nil {
			return []Request{{}}
		}
		for _, m := range members {
			if m.key == "method" {
				return []Request{parseCandidate(trimmed)}
			}
		}
		candidates := make([]Request, 0, len(members))
		for _, m := range members {
			candidates = append(candidates, parseCandidate(m.value))
		}
		return candidates
	default:
		return []Request{{}}
	}
}

// parseCandidate extracts the request members from one candidate value.
// Non-object candidates come back empty and fail dispatch downstream.
func parseCandidate(raw json.RawMessage) Request {
	var fields struct {
		ID     json.RawMessage `json:"id"`
		Method json.RawMessage `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Request{}
	}
	candidate := Request{ID: fields.ID}
	if len(fields.Method) > 0 {
		// A non-string method member counts as absent.
		var method string
		if err := json.Unmarshal(fields.Method, &method); err == nil {
			candidate.Method = method
		}
	}
	candidate.Params = parseParams(fields.Params)
	return candidate
}

// parseParams flattens the params member into positional arguments. Object
// params contribute their values in document order; a bare scalar becomes a
// single argument.
func parseParams(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil
		}
		return elems
	case '{':
		members, err := objectMembers(raw)
		if err != nil {
			return nil
		}
		values := make([]json.RawMessage, len(members))
		for i, m := range members {
			values[i] = m.value
		}
		return values
	default:
		return []json.RawMessage{raw}
	}
}

type objectMember struct {
	key   string
	value json.RawMessage
}

// objectMembers lists an object's members in document order, which a plain
// unmarshal into a Go map would lose.
func objectMembers(data []byte) ([]objectMember, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not a JSON object")
	}
	var members []objectMember
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, objectMember{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}
