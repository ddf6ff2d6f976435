package s3

import "testing"

func TestNormalizeEndpoint(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"https://minio.example.com", "minio.example.com"},
		{"http://localhost:9000", "localhost:9000"},
		{"minio.example.com/", "minio.example.com"},
		{"https://s3.eu-west-1.amazonaws.com/some/path", "s3.eu-west-1.amazonaws.com"},
	}
	for _, tc := range testCases {
		if got := normalizeEndpoint(tc.in); got != tc.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Immich - Trips", "immich-trips"},
		{"Summer 2026!", "summer-2026"},
		{"already-clean_name.v2", "already-clean_name.v2"},
		{"  spaces  ", "spaces"},
	}
	for _, tc := range testCases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
