package bulk

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
)

// envelope is the top level of every CDO response. An empty object means
// "no results".
type envelope map[string]json.RawMessage

type metadata struct {
	ResultSet *struct {
		Offset json.Number `json:"offset"`
		Count  json.Number `json:"count"`
		Limit  json.Number `json:"limit"`
	} `json:"resultset"`
}

func decodeEnvelope(target string, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &client.MalformedResponseError{Target: target, Reason: "invalid JSON", Err: err}
	}
	return env, nil
}

// parseCount extracts metadata.resultset.count.
func parseCount(target string, body []byte) (int, error) {
	env, err := decodeEnvelope(target, body)
	if err != nil {
		return 0, err
	}
	if len(env) == 0 {
		return 0, nil
	}

	raw, ok := env["metadata"]
	if !ok {
		return 0, &client.MalformedResponseError{Target: target, Reason: "missing metadata.resultset.count"}
	}
	var meta metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, &client.MalformedResponseError{Target: target, Reason: "invalid metadata", Err: err}
	}
	if meta.ResultSet == nil || meta.ResultSet.Count == "" {
		return 0, &client.MalformedResponseError{Target: target, Reason: "missing metadata.resultset.count"}
	}

	n, err := meta.ResultSet.Count.Int64()
	if err != nil {
		return 0, &client.MalformedResponseError{
			Target: target,
			Reason: fmt.Sprintf("count %q is not an integer", meta.ResultSet.Count),
		}
	}
	if n < 0 {
		return 0, &client.MalformedResponseError{
			Target: target,
			Reason: fmt.Sprintf("negative count %d", n),
		}
	}
	return int(n), nil
}

// parseResults extracts the results array. Numbers stay json.Number so
// values round-trip unchanged.
func parseResults(target string, body []byte) ([]Record, error) {
	env, err := decodeEnvelope(target, body)
	if err != nil {
		return nil, err
	}
	if len(env) == 0 {
		return nil, nil
	}

	raw, ok := env["results"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, &client.MalformedResponseError{Target: target, Reason: "missing results array"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, &client.MalformedResponseError{Target: target, Reason: "results is not an array of objects", Err: err}
	}
	return records, nil
}
