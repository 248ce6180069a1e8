package crosside

import (
	"fmt"
	"strings"
)

const (
	targetDesktop = "desktop"
	targetAndroid = "android"
	targetWeb     = "web"
)

// normalizeTarget folds the accepted target aliases onto the canonical
// names. Unknown names return an error so callers can skip them.
func normalizeTarget(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "desktop", "linux", "windows", "native":
		return targetDesktop, nil
	case "android":
		return targetAndroid, nil
	case "web", "emscripten":
		return targetWeb, nil
	default:
		return "", fmt.Errorf("unknown target %q", raw)
	}
}

func normalizeTargets(raw []string) []string {
	var out []string
	for _, token := range raw {
		target, err := normalizeTarget(token)
		if err != nil {
			warnf("%v (skipped)", err)
			continue
		}
		out = appendUnique(out, target)
	}
	return out
}

// Android ABI indices. Order matters: artifact folders and toolchain
// triples are looked up by index.
const (
	abiArm7  = 0
	abiArm64 = 1
)

func abiName(abi int) string {
	if abi == abiArm64 {
		return "arm64-v8a"
	}
	return "armeabi-v7a"
}

// parseABIs reads the --abis comma list. An empty list means both.
func parseABIs(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []int{abiArm7, abiArm64}, nil
	}
	var out []int
	seen := map[int]bool{}
	for _, token := range strings.Split(raw, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		var abi int
		switch token {
		case "arm7", "armeabi", "armeabi-v7a":
			abi = abiArm7
		case "arm64", "arm64-v8a", "aarch64":
			abi = abiArm64
		default:
			return nil, fmt.Errorf("unknown abi %q", token)
		}
		if !seen[abi] {
			seen[abi] = true
			out = append(out, abi)
		}
	}
	if len(out) == 0 {
		return []int{abiArm7, abiArm64}, nil
	}
	return out, nil
}
