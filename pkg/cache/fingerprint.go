package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pario-ai/quill/pkg/models"
)

// DefaultNamespace prefixes every cache key in the persistent store.
const DefaultNamespace = "quill_cache"

// Fingerprint addresses a cache entry.
type Fingerprint struct {
	// Key is the persistent store key: <namespace>:<action>:<hash>.
	Key string
	// Hash is the lowercase hex SHA-256 of the canonical input.
	Hash string
}

// ComputeFingerprint hashes the canonical JSON of {action, options, text}.
// Option maps are serialized with sorted keys at every depth, so two
// structurally equal option maps always produce the same key. Nil and empty
// options are equivalent.
func ComputeFingerprint(namespace string, action models.Action, text string, options map[string]any) (Fingerprint, error) {
	opts, err := canonicalize(options)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("cache: canonicalize options: %w", err)
	}
	act, _ := json.Marshal(string(action))
	txt, _ := json.Marshal(text)

	var buf bytes.Buffer
	buf.WriteString(`{"action":`)
	buf.Write(act)
	buf.WriteString(`,"options":`)
	buf.Write(opts)
	buf.WriteString(`,"text":`)
	buf.Write(txt)
	buf.WriteByte('}')

	sum := sha256.Sum256(buf.Bytes())
	hash := hex.EncodeToString(sum[:])
	return Fingerprint{
		Key:  fmt.Sprintf("%s:%s:%s", namespace, action, hash),
		Hash: hash,
	}, nil
}

// canonicalize produces a deterministic JSON representation of options.
// Values are first normalized through JSON so that structs, typed maps and
// numeric types collapse to their JSON form.
func canonicalize(options map[string]any) ([]byte, error) {
	if len(options) == 0 {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
