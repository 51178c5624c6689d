package dependencies

import (
	"net/url"
	"testing"
)

func TestBuildPublicObjectURL(t *testing.T) {
	cases := []struct {
		base string
		key  string
		want string
	}{
		{"https://bucket-1250000000.cos.ap-guangzhou.myqcloud.com", "profile_images/U1_1.jpg", "https://bucket-1250000000.cos.ap-guangzhou.myqcloud.com/profile_images/U1_1.jpg"},
		{"https://cdn.example.com/", "/profile_images/U1_1.jpg", "https://cdn.example.com/profile_images/U1_1.jpg"},
		{"https://cdn.example.com/assets", "profile_images/U1_1.jpg", "https://cdn.example.com/assets/profile_images/U1_1.jpg"},
	}
	for _, tc := range cases {
		base, err := url.Parse(tc.base)
		if err != nil {
			t.Fatal(err)
		}
		if got := buildPublicObjectURL(base, tc.key); got != tc.want {
			t.Errorf("buildPublicObjectURL(%q, %q) = %q, want %q", tc.base, tc.key, got, tc.want)
		}
	}
}
