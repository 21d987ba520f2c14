package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"social-report/pkg/types"
)

// rawPlatform is one platform object of a data file.
type rawPlatform struct {
	SheetID   string                   `json:"sheet_id,omitempty"`
	Worksheet string                   `json:"worksheet"`
	Count     *int                     `json:"count,omitempty"`
	Data      []map[string]interface{} `json:"data"`
}

func (rp rawPlatform) toPlatform(key string) types.PlatformData {
	pd := types.PlatformData{
		Key:       key,
		Worksheet: rp.Worksheet,
		SheetID:   rp.SheetID,
		Records:   make([]types.RawPostRecord, 0, len(rp.Data)),
	}
	for _, raw := range rp.Data {
		pd.Records = append(pd.Records, NormalizeRow(textRow(raw)))
	}
	pd.Count = len(pd.Records)
	if rp.Count != nil {
		pd.Count = *rp.Count
	}
	return pd
}

// DecodeDataset reads a data file. Both the current shape
// {"generated": ..., "platforms": {"<key>": {"data": [...]}}} and the legacy
// shape {"<key>": {"data": [...]}} are accepted. Platforms are returned in
// document order; when a key appears in both shapes the "platforms" entry wins.
func DecodeDataset(r io.Reader) (*types.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	ds := &types.Dataset{Platforms: []types.PlatformData{}}
	var legacy []types.PlatformData

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode dataset: %w", err)
		}

		switch key {
		case "generated":
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("failed to decode generated timestamp: %w", err)
			}
			ds.Generated = cellText(v)
		case "platforms":
			platforms, err := decodePlatforms(dec)
			if err != nil {
				return nil, err
			}
			ds.Platforms = append(ds.Platforms, platforms...)
		default:
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("failed to decode key %q: %w", key, err)
			}
			if pd, ok := legacyPlatform(key, raw); ok {
				legacy = append(legacy, pd)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}

	for _, pd := range legacy {
		if !hasPlatform(ds, pd.Key) {
			ds.Platforms = append(ds.Platforms, pd)
		}
	}
	return ds, nil
}

func decodePlatforms(dec *json.Decoder) ([]types.PlatformData, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode platforms: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("failed to decode platforms: expected object, got %v", tok)
	}

	var platforms []types.PlatformData
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode platforms: %w", err)
		}
		var rp rawPlatform
		if err := dec.Decode(&rp); err != nil {
			return nil, fmt.Errorf("failed to decode platform %q: %w", key, err)
		}
		platforms = append(platforms, rp.toPlatform(key))
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("failed to decode platforms: %w", err)
	}
	return platforms, nil
}

// legacyPlatform accepts a top-level {"data": [...]} object as a platform.
func legacyPlatform(key string, raw json.RawMessage) (types.PlatformData, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return types.PlatformData{}, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var rp rawPlatform
	if err := dec.Decode(&rp); err != nil || rp.Data == nil {
		return types.PlatformData{}, false
	}
	return rp.toPlatform(key), true
}

func hasPlatform(ds *types.Dataset, key string) bool {
	for _, p := range ds.Platforms {
		if p.Key == key {
			return true
		}
	}
	return false
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("unexpected end of input")
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// platformFile is the on-disk form of a single platform.
type platformFile struct {
	Generated string              `json:"generated,omitempty"`
	Platform  string              `json:"platform,omitempty"`
	SheetID   string              `json:"sheet_id,omitempty"`
	Worksheet string              `json:"worksheet"`
	Count     int                 `json:"count"`
	Data      []map[string]string `json:"data"`
}

func toPlatformFile(pd types.PlatformData) platformFile {
	rows := make([]map[string]string, 0, len(pd.Records))
	for _, r := range pd.Records {
		rows = append(rows, RecordRow(r))
	}
	return platformFile{
		SheetID:   pd.SheetID,
		Worksheet: pd.Worksheet,
		Count:     pd.Count,
		Data:      rows,
	}
}

// orderedPlatforms marshals as a JSON object keyed by platform, in slice order.
type orderedPlatforms []types.PlatformData

func (op orderedPlatforms) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pd := range op {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pd.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(toPlatformFile(pd))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeDataset writes ds in the current data file shape.
func EncodeDataset(w io.Writer, ds *types.Dataset) error {
	out := struct {
		Generated string           `json:"generated"`
		Platforms orderedPlatforms `json:"platforms"`
	}{
		Generated: ds.Generated,
		Platforms: orderedPlatforms(ds.Platforms),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}

// EncodePlatform writes a single platform file stamped with generated.
func EncodePlatform(w io.Writer, generated string, pd types.PlatformData) error {
	pf := toPlatformFile(pd)
	pf.Generated = generated
	pf.Platform = pd.Key
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pf); err != nil {
		return fmt.Errorf("failed to encode platform %s: %w", pd.Key, err)
	}
	return nil
}
