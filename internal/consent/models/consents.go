package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"consentd/pkg/domain"
)

// XDM keys used by consent payloads, shared state and the persisted blob.
const (
	KeyConsents = "consents"
	KeyMetadata = "metadata"
	KeyTime     = "time"
	KeyValue    = "val"
)

// TimestampLayout is the second-precision UTC layout written to metadata.time.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Consents is a set of consent categories plus optional metadata. The zero
// value is empty and ready to use.
//
// Every constructor and accessor copies the underlying tree, so two Consents
// never share nested maps.
type Consents struct {
	categories map[string]any
}

// FromXDM builds Consents from an XDM payload of the form
// {"consents": {...}}. A missing or non-map "consents" value yields empty
// Consents.
func FromXDM(xdm map[string]any) Consents {
	if len(xdm) == 0 {
		return Consents{}
	}
	categories, ok := asMap(xdm[KeyConsents])
	if !ok {
		return Consents{}
	}
	return FromCategories(categories)
}

// FromCategories builds Consents directly from a category tree, without the
// "consents" wrapper.
func FromCategories(categories map[string]any) Consents {
	if len(categories) == 0 {
		return Consents{}
	}
	return Consents{categories: copyMap(categories)}
}

// ParseJSON decodes a persisted XDM blob.
func ParseJSON(data []byte) (Consents, error) {
	var xdm map[string]any
	if err := json.Unmarshal(data, &xdm); err != nil {
		return Consents{}, err
	}
	return FromXDM(xdm), nil
}

// Clone returns an independent copy.
func (c Consents) Clone() Consents {
	return FromCategories(c.categories)
}

// IsEmpty reports whether no categories are set.
func (c Consents) IsEmpty() bool {
	return len(c.categories) == 0
}

// Merge overlays other onto c. Each top-level key of other replaces the same
// key in c; nested category maps are replaced, not merged.
func (c *Consents) Merge(other Consents) {
	if other.IsEmpty() {
		return
	}
	if c.IsEmpty() {
		c.categories = copyMap(other.categories)
		return
	}
	for k, v := range other.categories {
		c.categories[k] = copyValue(v)
	}
}

// SetTimestamp writes metadata.time from t. Other metadata keys are kept.
// It is a no-op on empty Consents.
func (c *Consents) SetTimestamp(t time.Time) {
	if c.IsEmpty() {
		return
	}
	metadata, ok := asMap(c.categories[KeyMetadata])
	if !ok {
		metadata = make(map[string]any, 1)
	}
	metadata[KeyTime] = FormatTimestamp(t)
	c.categories[KeyMetadata] = metadata
}

// Timestamp returns metadata.time when present.
func (c Consents) Timestamp() (string, bool) {
	metadata, ok := asMap(c.categories[KeyMetadata])
	if !ok {
		return "", false
	}
	ts, ok := metadata[KeyTime].(string)
	return ts, ok
}

// Category returns the value of a category. Dotted names walk nested
// categories, so "personalize.content" reads consents.personalize.content.val.
func (c Consents) Category(name string) (domain.ConsentValue, bool) {
	node := c.categories
	parts := strings.Split(name, ".")
	for i, part := range parts {
		child, ok := asMap(node[part])
		if !ok {
			return "", false
		}
		if i == len(parts)-1 {
			val, ok := child[KeyValue].(string)
			if !ok {
				return "", false
			}
			return domain.ConsentValue(val), true
		}
		node = child
	}
	return "", false
}

// Categories returns a copy of the category tree, without the XDM wrapper.
func (c Consents) Categories() map[string]any {
	if c.IsEmpty() {
		return map[string]any{}
	}
	return copyMap(c.categories)
}

// AsXDM returns an independent copy wrapped as {"consents": {...}}. Empty
// Consents produce an empty "consents" object.
func (c Consents) AsXDM() map[string]any {
	return map[string]any{KeyConsents: c.Categories()}
}

// MarshalJSON encodes the XDM form.
func (c Consents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.AsXDM())
}

// Equal reports deep equality including metadata.
func (c Consents) Equal(other Consents) bool {
	if c.IsEmpty() || other.IsEmpty() {
		return c.IsEmpty() == other.IsEmpty()
	}
	return reflect.DeepEqual(c.categories, other.categories)
}

// EqualIgnoringTimestamp compares everything except metadata.time. A metadata
// object left empty once time is removed counts as absent.
func (c Consents) EqualIgnoringTimestamp(other Consents) bool {
	return c.withoutTimestamp().Equal(other.withoutTimestamp())
}

func (c Consents) withoutTimestamp() Consents {
	stripped := c.Clone()
	metadata, ok := asMap(stripped.categories[KeyMetadata])
	if !ok {
		return stripped
	}
	delete(metadata, KeyTime)
	if len(metadata) == 0 {
		delete(stripped.categories, KeyMetadata)
	}
	return stripped
}

// FormatTimestamp renders t as second-precision UTC with a literal Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
