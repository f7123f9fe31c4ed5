package parser

import "testing"

func TestProductGID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123", "gid://shopify/Product/123"},
		{" 42 ", "gid://shopify/Product/42"},
		{"gid://shopify/Product/7", "gid://shopify/Product/7"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ProductGID(tt.in); got != tt.want {
			t.Errorf("ProductGID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRunID(t *testing.T) {
	if _, err := RunID(""); err == nil {
		t.Error("expected error for empty id")
	}
	if _, err := RunID("not-a-uuid"); err == nil {
		t.Error("expected error for malformed id")
	}
	id, err := RunID("6f1c2b8e-3d4a-4c1e-9b7a-2f5d8e9c0a11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "6f1c2b8e-3d4a-4c1e-9b7a-2f5d8e9c0a11" {
		t.Errorf("id = %s", id)
	}
}
