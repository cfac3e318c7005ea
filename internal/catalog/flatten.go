package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"plantprofit/internal/domain"
)

// Flatten turns a two-level JSON object (section -> key -> record) into one
// document per record, in file order. A key repeated within a section keeps
// its first position and its last value; two different records that map to
// the same document id are rejected.
func Flatten(raw []byte) ([]domain.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var docs []domain.Document
	seen := make(map[string]int)
	for dec.More() {
		section, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("section %q: %w", section, err)
		}
		for dec.More() {
			key, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			var item any
			if err := dec.Decode(&item); err != nil {
				return nil, fmt.Errorf("parse %s.%s: %v: %w", section, key, err, domain.ErrInvalidInput)
			}
			text, err := canonicalJSON(item)
			if err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", section, key, err)
			}
			doc := domain.Document{
				ID:       section + "_" + key,
				Text:     text,
				Metadata: domain.Metadata{Section: section, Key: key},
			}
			if i, ok := seen[doc.ID]; ok {
				if prev := docs[i].Metadata; prev != doc.Metadata {
					return nil, fmt.Errorf("document id %q of %s.%s collides with %s.%s: %w",
						doc.ID, section, key, prev.Section, prev.Key, domain.ErrInvalidInput)
				}
				docs[i] = doc
				continue
			}
			seen[doc.ID] = len(docs)
			docs = append(docs, doc)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after catalog: %w", domain.ErrInvalidInput)
	}
	return docs, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse catalog: %v: %w", err, domain.ErrInvalidInput)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("parse catalog: expected %q, got %v: %w", want, tok, domain.ErrInvalidInput)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parse catalog: %v: %w", err, domain.ErrInvalidInput)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("parse catalog: expected key, got %v: %w", tok, domain.ErrInvalidInput)
	}
	return key, nil
}

// canonicalJSON serializes with sorted object keys and number literals as written.
func canonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
