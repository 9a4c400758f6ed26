package pinboard

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Post is a single Pinboard bookmark as returned by /v1/posts/all.
type Post struct {
	// Href is the bookmarked URL. Together with Time it identifies the post.
	Href string `json:"href"`

	// Description is the title of the bookmark.
	Description string `json:"description"`

	// Extended holds the free-form notes.
	Extended string `json:"extended"`

	// Tags in the order Pinboard returned them.
	Tags Tags `json:"tags"`

	// Time is the creation timestamp exactly as delivered (RFC 3339).
	// It is sent back unchanged as the dt parameter on update.
	Time string `json:"time"`

	Shared YesNo `json:"shared"`
	ToRead YesNo `json:"toread"`

	// Hash and Meta are informational and never sent back.
	Hash string `json:"hash,omitempty"`
	Meta string `json:"meta,omitempty"`
}

// YesNo is a boolean that Pinboard encodes as "yes" or "no".
type YesNo bool

// String returns the Pinboard wire form.
func (b YesNo) String() string {
	if b {
		return "yes"
	}
	return "no"
}

// MarshalJSON encodes the flag as "yes" or "no".
func (b YesNo) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts "yes"/"no" strings as well as JSON booleans.
func (b *YesNo) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*b = false
	case bool:
		*b = YesNo(v)
	case string:
		switch strings.ToLower(v) {
		case "yes", "true", "1":
			*b = true
		case "no", "false", "0", "":
			*b = false
		default:
			return fmt.Errorf("invalid yes/no value %q", v)
		}
	default:
		return fmt.Errorf("invalid yes/no value %s", string(data))
	}
	return nil
}

// Tags is the ordered tag list of a post. Pinboard sends it as a single
// space separated string.
type Tags []string

// String returns the space separated wire form.
func (t Tags) String() string {
	return strings.Join(t, " ")
}

// MarshalJSON encodes the tags as a space separated string.
func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a space separated string or a JSON array of strings.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = strings.Fields(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("invalid tags value %s", string(data))
	}
	*t = list
	return nil
}
