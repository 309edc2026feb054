package discovery

import "testing"

func TestDemanglePath(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		want string
	}{
		{name: "simple", dir: "-Users-dev-Foo", want: "/Users/dev/Foo"},
		{name: "trailing separator", dir: "-Users-dev-Foo-", want: "/Users/dev/Foo"},
		{name: "root", dir: "-", want: "/"},
		{name: "empty", dir: "", want: "/"},
		{name: "hyphenated segment stays split", dir: "-home-my-project", want: "/home/my/project"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := DemanglePath(tc.dir); got != tc.want {
				t.Fatalf("DemanglePath(%q) = %q, want %q", tc.dir, got, tc.want)
			}
		})
	}
}

func TestManglePathRoundTrip(t *testing.T) {
	path := "/Users/dev/Foo"
	if got := DemanglePath(ManglePath(path)); got != path {
		t.Fatalf("round trip produced %q, want %q", got, path)
	}
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/Users/dev/Foo", want: "Foo"},
		{path: "/", want: "/"},
	}
	for _, tc := range tests {
		if got := ProjectName(tc.path); got != tc.want {
			t.Fatalf("ProjectName(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "canonical", id: "0c2f4b9e-3c7a-4f21-9d6e-8a1b2c3d4e5f", want: true},
		{name: "uppercase rejected", id: "0C2F4B9E-3C7A-4F21-9D6E-8A1B2C3D4E5F", want: false},
		{name: "too short", id: "0c2f4b9e", want: false},
		{name: "not hex", id: "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", want: false},
		{name: "empty", id: "", want: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidSessionID(tc.id); got != tc.want {
				t.Fatalf("ValidSessionID(%q) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}
