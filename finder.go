package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NodeKind tags the variant held by a Node.
type NodeKind int

const (
	KindNull NodeKind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

// Member is one key/value pair of an object, kept in document order.
type Member struct {
	Key   string
	Value *Node
}

// Node is a JSON value that remembers the order object members appeared
// in, so documents can be walked and re-serialized without reshuffling.
type Node struct {
	Kind    NodeKind
	Bool    bool
	Num     json.Number
	Str     string
	Members []Member
	Items   []*Node
}

// ParseNode decodes exactly one JSON value from data.
func ParseNode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &Node{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				value, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				n.setMember(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &Node{Kind: KindArray}
			for dec.More() {
				item, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", rune(v))
		}
	case string:
		return &Node{Kind: KindString, Str: v}, nil
	case json.Number:
		return &Node{Kind: KindNumber, Num: v}, nil
	case bool:
		return &Node{Kind: KindBool, Bool: v}, nil
	case nil:
		return &Node{Kind: KindNull}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// setMember adds key to the object. A repeated key keeps its first
// position and takes the new value.
func (n *Node) setMember(key string, value *Node) {
	for i := range n.Members {
		if n.Members[i].Key == key {
			n.Members[i].Value = value
			return
		}
	}
	n.Members = append(n.Members, Member{Key: key, Value: value})
}

// Field returns the value stored under key when n is an object.
func (n *Node) Field(key string) (*Node, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, false
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// StringField returns the string stored under key, if any.
func (n *Node) StringField(key string) (string, bool) {
	v, ok := n.Field(key)
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// FindString walks n depth-first, objects in member order and arrays in
// index order, and returns the first string value accepted by pred.
func FindString(n *Node, pred func(string) bool) (string, bool) {
	if n == nil {
		return "", false
	}

	switch n.Kind {
	case KindString:
		if pred(n.Str) {
			return n.Str, true
		}
	case KindObject:
		for _, m := range n.Members {
			if s, ok := FindString(m.Value, pred); ok {
				return s, true
			}
		}
	case KindArray:
		for _, item := range n.Items {
			if s, ok := FindString(item, pred); ok {
				return s, true
			}
		}
	}
	return "", false
}

// ContainsMarker builds a FindString predicate matching values that
// contain marker.
func ContainsMarker(marker string) func(string) bool {
	return func(s string) bool {
		return strings.Contains(s, marker)
	}
}

// MarshalJSON writes n compactly, keeping member order and leaving
// '<', '>' and '&' unescaped.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent renders n the way artifacts are stored on disk.
func (n *Node) MarshalIndent() ([]byte, error) {
	compact, err := n.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}

	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if n.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(n.Num.String())
	case KindString:
		return writeJSONString(buf, n.Str)
	case KindObject:
		buf.WriteByte('{')
		for i, m := range n.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unknown node kind %d", n.Kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
