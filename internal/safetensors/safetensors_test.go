package safetensors_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mm-go/internal/safetensors"
)

// container builds a minimal safetensors-style file: 8-byte little-endian
// header length, the JSON header, then a few payload bytes.
func container(t *testing.T, header map[string]any) []byte {
	t.Helper()

	raw, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshaling test header: %v", err)
	}

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(len(raw)))
	buf = append(buf, raw...)
	return append(buf, []byte{0xde, 0xad, 0xbe, 0xef}...)
}

func TestExtract(t *testing.T) {
	t.Run("reads trigger from ss_trigger_word", func(t *testing.T) {
		data := container(t, map[string]any{
			"__metadata__": map[string]string{"ss_trigger_word": "ohwx style"},
		})

		meta, err := safetensors.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if meta.Trigger != "ohwx style" {
			t.Errorf("Trigger = %q, want %q", meta.Trigger, "ohwx style")
		}
	})

	t.Run("trigger key order is fixed", func(t *testing.T) {
		tests := []struct {
			name string
			meta map[string]string
			want string
		}{
			{
				"ss_trigger_word wins over the others",
				map[string]string{"ss_trigger_word": "first", "activation_text": "second", "trigger_word": "third"},
				"first",
			},
			{
				"activation_text wins over trigger_word",
				map[string]string{"activation_text": "second", "trigger_word": "third"},
				"second",
			},
			{
				"trigger_word is the last resort",
				map[string]string{"trigger_word": "third"},
				"third",
			},
			{
				"empty values are skipped",
				map[string]string{"ss_trigger_word": "", "activation_text": "second"},
				"second",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				data := container(t, map[string]any{"__metadata__": tt.meta})
				meta, err := safetensors.Extract(bytes.NewReader(data))
				if err != nil {
					t.Fatalf("Extract() error = %v", err)
				}
				if meta.Trigger != tt.want {
					t.Errorf("Trigger = %q, want %q", meta.Trigger, tt.want)
				}
			})
		}
	})

	t.Run("flattens and sorts tag frequency across datasets", func(t *testing.T) {
		freq := `{"dataset1": {"tag_b": 5, "tag_a": 2}, "dataset2": {"tag_c": 1, "tag_a": 9}}`
		data := container(t, map[string]any{
			"__metadata__": map[string]string{"ss_tag_frequency": freq},
		})

		meta, err := safetensors.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if meta.Tags != "tag_a, tag_b, tag_c" {
			t.Errorf("Tags = %q, want %q", meta.Tags, "tag_a, tag_b, tag_c")
		}
	})

	t.Run("caps tags at 50", func(t *testing.T) {
		tags := make(map[string]int, 60)
		for i := 0; i < 60; i++ {
			tags[fmt.Sprintf("tag_%02d", i)] = i
		}
		raw, err := json.Marshal(map[string]map[string]int{"ds": tags})
		if err != nil {
			t.Fatalf("marshaling tag frequency: %v", err)
		}
		data := container(t, map[string]any{
			"__metadata__": map[string]string{"ss_tag_frequency": string(raw)},
		})

		meta, err := safetensors.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		got := strings.Split(meta.Tags, ", ")
		if len(got) != 50 {
			t.Fatalf("tag count = %d, want 50", len(got))
		}
		if got[0] != "tag_00" || got[49] != "tag_49" {
			t.Errorf("tags not the first 50 alphabetically: first=%q last=%q", got[0], got[49])
		}
	})

	t.Run("unparseable tag frequency yields no tags", func(t *testing.T) {
		data := container(t, map[string]any{
			"__metadata__": map[string]string{"ss_tag_frequency": "not json", "ss_trigger_word": "kept"},
		})

		meta, err := safetensors.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if meta.Tags != "" {
			t.Errorf("Tags = %q, want empty", meta.Tags)
		}
		if meta.Trigger != "kept" {
			t.Errorf("Trigger = %q, want %q (tag failure must not discard trigger)", meta.Trigger, "kept")
		}
	})

	t.Run("container without __metadata__ yields empty metadata", func(t *testing.T) {
		data := container(t, map[string]any{
			"some.tensor.weight": map[string]any{"dtype": "F16"},
		})

		meta, err := safetensors.Extract(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if meta.Trigger != "" || meta.Tags != "" {
			t.Errorf("Extract() = %+v, want empty metadata", meta)
		}
	})

	t.Run("file shorter than the length prefix", func(t *testing.T) {
		_, err := safetensors.Extract(bytes.NewReader([]byte{0x01, 0x02, 0x03}))
		if !errors.Is(err, safetensors.ErrTruncatedHeader) {
			t.Errorf("Extract() error = %v, want ErrTruncatedHeader", err)
		}
	})

	t.Run("declared length above the sanity ceiling", func(t *testing.T) {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, 100_000_001)

		_, err := safetensors.Extract(bytes.NewReader(buf))
		if !errors.Is(err, safetensors.ErrHeaderTooLarge) {
			t.Errorf("Extract() error = %v, want ErrHeaderTooLarge", err)
		}
	})

	t.Run("header that is not JSON", func(t *testing.T) {
		payload := []byte("certainly not json")
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(len(payload)))
		buf = append(buf, payload...)

		_, err := safetensors.Extract(bytes.NewReader(buf))
		if !errors.Is(err, safetensors.ErrMalformedHeader) {
			t.Errorf("Extract() error = %v, want ErrMalformedHeader", err)
		}
	})

	t.Run("__metadata__ with non-string values", func(t *testing.T) {
		data := container(t, map[string]any{
			"__metadata__": map[string]any{"ss_trigger_word": 42},
		})

		_, err := safetensors.Extract(bytes.NewReader(data))
		if !errors.Is(err, safetensors.ErrMalformedHeader) {
			t.Errorf("Extract() error = %v, want ErrMalformedHeader", err)
		}
	})
}

func TestKeys(t *testing.T) {
	data := container(t, map[string]any{
		"__metadata__":   map[string]string{"ss_trigger_word": "x"},
		"zz.weight":      map[string]any{"dtype": "F16"},
		"aa.bias":        map[string]any{"dtype": "F16"},
		"middle.weight2": map[string]any{"dtype": "F32"},
	})

	keys, err := safetensors.Keys(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}

	want := []string{"aa.bias", "middle.weight2", "zz.weight"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestDetectArchitecture(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"stable cascade via cascade", []string{"cascade.block.0.weight"}, "Stable Cascade"},
		{"stable cascade via effnet", []string{"EFFNET.backbone.weight"}, "Stable Cascade"},
		{"pony", []string{"pony.special.weight"}, "Pony"},
		{"flux via exact joint blocks key", []string{"model.diffusion_model.joint_blocks.0.x_block.attn.qkv.weight"}, "Flux"},
		{"flux via double blocks", []string{"model.double_blocks.3.weight"}, "Flux"},
		{"flux via single blocks", []string{"model.single_blocks.1.weight"}, "Flux"},
		{"sdxl block index", []string{"model.down_blocks.2.attentions.1.transformer_blocks.9.norm.weight"}, "SDXL"},
		{"sd 1.x or 2.x text encoder", []string{"cond_stage_model.transformer.text_model.embeddings.position_embedding.weight"}, "SD 1.x/2.x"},
		{"cascade takes precedence over pony", []string{"pony.weight", "cascade.weight"}, "Stable Cascade"},
		{"nothing recognized", []string{"wholly.unrelated.weight"}, "Unknown"},
		{"no keys at all", nil, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safetensors.DetectArchitecture(tt.keys); got != tt.want {
				t.Errorf("DetectArchitecture(%v) = %q, want %q", tt.keys, got, tt.want)
			}
		})
	}
}
