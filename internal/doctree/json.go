package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MarshalJSON writes the structure as nested objects keyed by label, in
// document order: {chapter: {section: {article: text}}}.
func (s *Structure) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.Chapters {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, c.Label); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, sec := range c.Sections {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, sec.Label); err != nil {
				return nil, err
			}
			buf.WriteByte('{')
			for k, a := range sec.Articles {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := writeKey(&buf, a.Label); err != nil {
					return nil, err
				}
				if err := writeString(&buf, a.Text); err != nil {
					return nil, err
				}
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads nested label-keyed objects, keeping key order.
func (s *Structure) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	out := New()
	err := decodeObject(dec, func(chapterLabel string) error {
		c := out.EnsureChapter(chapterLabel)
		return decodeObject(dec, func(sectionLabel string) error {
			sec := c.EnsureSection(sectionLabel)
			return decodeObject(dec, func(articleLabel string) error {
				var text string
				if err := dec.Decode(&text); err != nil {
					return fmt.Errorf("article %q: %w", articleLabel, err)
				}
				sec.PutArticle(&Article{
					Label: articleLabel,
					ID:    strings.TrimPrefix(articleLabel, "Article "),
					Text:  text,
				})
				return nil
			})
		})
	})
	if err != nil {
		return fmt.Errorf("decode structure: %w", err)
	}
	*s = *out
	return nil
}

// Encode writes v as indented JSON without HTML escaping, so accented text
// and symbols are stored as-is.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func decodeObject(dec *json.Decoder, each func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected key, got %v", tok)
		}
		if err := each(key); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func writeKey(buf *bytes.Buffer, key string) error {
	if err := writeString(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
