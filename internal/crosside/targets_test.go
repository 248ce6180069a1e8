package crosside

import (
	"reflect"
	"testing"
)

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"desktop", targetDesktop, false},
		{"linux", targetDesktop, false},
		{"windows", targetDesktop, false},
		{"native", targetDesktop, false},
		{"Desktop", targetDesktop, false},
		{"android", targetAndroid, false},
		{"ANDROID", targetAndroid, false},
		{"web", targetWeb, false},
		{"emscripten", targetWeb, false},
		{" web ", targetWeb, false},
		{"ios", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalizeTarget(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeTarget(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeTarget(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeTargets(t *testing.T) {
	got := normalizeTargets([]string{"linux", "web", "ios", "desktop", "emscripten"})
	want := []string{targetDesktop, targetWeb}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeTargets = %v, want %v", got, want)
	}
}

func TestParseABIs(t *testing.T) {
	tests := []struct {
		raw     string
		want    []int
		wantErr bool
	}{
		{"", []int{abiArm7, abiArm64}, false},
		{"arm7", []int{abiArm7}, false},
		{"arm64", []int{abiArm64}, false},
		{"arm64,arm7", []int{abiArm64, abiArm7}, false},
		{"armeabi-v7a,arm64-v8a", []int{abiArm7, abiArm64}, false},
		{"aarch64,aarch64", []int{abiArm64}, false},
		{" arm7 , arm64 ", []int{abiArm7, abiArm64}, false},
		{",,", []int{abiArm7, abiArm64}, false},
		{"x86", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseABIs(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseABIs(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseABIs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAbiName(t *testing.T) {
	if got := abiName(abiArm7); got != "armeabi-v7a" {
		t.Errorf("abiName(arm7) = %q, want %q", got, "armeabi-v7a")
	}
	if got := abiName(abiArm64); got != "arm64-v8a" {
		t.Errorf("abiName(arm64) = %q, want %q", got, "arm64-v8a")
	}
}
