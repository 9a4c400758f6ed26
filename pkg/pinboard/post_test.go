package pinboard

import (
	"encoding/json"
	"testing"
)

func TestPost_UnmarshalPinboardJSON(t *testing.T) {
	data := []byte(`[{
		"href": "https://example.com/",
		"description": "[no title]",
		"extended": "",
		"meta": "abc",
		"hash": "def",
		"time": "2014-06-10T17:21:39Z",
		"shared": "yes",
		"toread": "no",
		"tags": "go  web\tarchive"
	}]`)

	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}

	post := posts[0]
	if post.Description != "[no title]" {
		t.Errorf("Description = %q", post.Description)
	}
	if !post.Shared || post.ToRead {
		t.Errorf("Shared = %v, ToRead = %v, want true, false", post.Shared, post.ToRead)
	}
	want := []string{"go", "web", "archive"}
	if len(post.Tags) != len(want) {
		t.Fatalf("Tags = %v, want %v", post.Tags, want)
	}
	for i := range want {
		if post.Tags[i] != want[i] {
			t.Errorf("Tags[%d] = %q, want %q", i, post.Tags[i], want[i])
		}
	}
}

func TestYesNo_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    YesNo
		wantErr bool
	}{
		{input: `"yes"`, want: true},
		{input: `"no"`, want: false},
		{input: `"YES"`, want: true},
		{input: `true`, want: true},
		{input: `false`, want: false},
		{input: `null`, want: false},
		{input: `""`, want: false},
		{input: `"maybe"`, wantErr: true},
		{input: `3`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got YesNo
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTags_UnmarshalArray(t *testing.T) {
	var tags Tags
	if err := json.Unmarshal([]byte(`["b","a"]`), &tags); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if tags.String() != "b a" {
		t.Errorf("String() = %q, want %q", tags.String(), "b a")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{401, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{302, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
