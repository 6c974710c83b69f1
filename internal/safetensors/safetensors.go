// Package safetensors reads the embedded JSON header of safetensors-style
// model containers: an 8-byte little-endian header length followed by that
// many bytes of UTF-8 JSON. Extraction is best-effort — a file that is not
// such a container yields one of the sentinel errors below, which callers
// treat as "no metadata", never as a scan failure.
package safetensors

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxHeaderSize is the sanity ceiling on the declared header length. A
// larger value means the file is not actually a safetensors container.
const maxHeaderSize = 100_000_000

// The closed set of expected extraction failures. Anything else coming out
// of Extract or Keys is a genuine I/O problem.
var (
	ErrTruncatedHeader = errors.New("safetensors: truncated header")
	ErrHeaderTooLarge  = errors.New("safetensors: declared header length exceeds sanity ceiling")
	ErrMalformedHeader = errors.New("safetensors: malformed header")
)

// triggerKeys are the known author-convention keys for activation text,
// in priority order. First non-empty match wins.
var triggerKeys = []string{"ss_trigger_word", "activation_text", "trigger_word"}

// Metadata holds the author-supplied hints recovered from a header.
type Metadata struct {
	Trigger string
	Tags    string
}

// Extract parses the header of r and recovers trigger text and tags from
// its __metadata__ object. A container without __metadata__ (or without
// the known keys) returns an empty Metadata and no error.
func Extract(r io.Reader) (Metadata, error) {
	doc, err := readHeader(r)
	if err != nil {
		return Metadata{}, err
	}

	raw, ok := doc["__metadata__"]
	if !ok {
		return Metadata{}, nil
	}

	var meta map[string]string
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: __metadata__ is not a string map", ErrMalformedHeader)
	}

	var out Metadata
	for _, key := range triggerKeys {
		if v := meta[key]; v != "" {
			out.Trigger = v
			break
		}
	}
	if freq, ok := meta["ss_tag_frequency"]; ok {
		out.Tags = parseTagFrequency(freq)
	}

	return out, nil
}

// Keys returns the sorted tensor-name keys of the header, excluding the
// __metadata__ entry. Intended for DetectArchitecture.
func Keys(r io.Reader) ([]string, error) {
	doc, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if k == "__metadata__" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// readHeader reads the 8-byte length prefix and parses the declared byte
// range as JSON. Invalid UTF-8 is substituted before parsing.
func readHeader(r io.Reader) (map[string]json.RawMessage, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedHeader
		}
		return nil, fmt.Errorf("reading header length: %w", err)
	}

	size := binary.LittleEndian.Uint64(prefix[:])
	if size > maxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, size)
	}

	raw, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	raw = bytes.ToValidUTF8(raw, []byte(string(utf8.RuneError)))

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	return doc, nil
}

// parseTagFrequency flattens a ss_tag_frequency value (itself JSON: a map
// of dataset name to tag-to-count map) into a sorted, deduplicated,
// comma-separated list capped at 50 tags. Any shape mismatch yields "".
func parseTagFrequency(raw string) string {
	var datasets map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &datasets); err != nil {
		return ""
	}

	seen := make(map[string]bool)
	var tags []string
	for _, dataset := range datasets {
		for tag := range dataset {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	if len(tags) > 50 {
		tags = tags[:50]
	}
	return strings.Join(tags, ", ")
}

// DetectArchitecture classifies the model family from tensor-name keys.
// Ordered heuristic, first match wins. Best effort only — not consulted by
// the scan pipeline.
func DetectArchitecture(keys []string) string {
	lower := make([]string, len(keys))
	for i, k := range keys {
		lower[i] = strings.ToLower(k)
	}

	if containsSubstring(lower, "cascade") || containsSubstring(lower, "effnet") {
		return "Stable Cascade"
	}
	if containsSubstring(lower, "pony") {
		return "Pony"
	}
	for _, k := range keys {
		if k == "model.diffusion_model.joint_blocks.0.x_block.attn.qkv.weight" {
			return "Flux"
		}
	}
	if containsSubstring(lower, "double_blocks") || containsSubstring(lower, "single_blocks") {
		return "Flux"
	}
	if containsSubstring(keys, "down_blocks.2.attentions.1.transformer_blocks.9") {
		return "SDXL"
	}
	if containsSubstring(keys, "cond_stage_model.transformer.text_model.embeddings") {
		return "SD 1.x/2.x"
	}

	return "Unknown"
}

func containsSubstring(keys []string, sub string) bool {
	for _, k := range keys {
		if strings.Contains(k, sub) {
			return true
		}
	}
	return false
}
