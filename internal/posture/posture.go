// Package posture normalizes the shape-shifting upstream posture payload into
// one canonical ordered sequence at the boundary, and filters checks down to
// the ones relevant to the device's operating system.
package posture

import (
	"encoding/json"
	"sort"
	"strings"

	"deniedpage/edge-service/internal/identity"
)

// CheckInput carries the rule parameters used to render a human label,
// e.g. ">= 14.2".
type CheckInput struct {
	Version  string `json:"version,omitempty"`
	Operator string `json:"operator,omitempty"`
}

// Check is one compliance rule evaluation.
type Check struct {
	Type        string      `json:"type"`
	RuleName    string      `json:"rule_name,omitempty"`
	Description string      `json:"description,omitempty"`
	Success     bool        `json:"success"`
	Input       *CheckInput `json:"input,omitempty"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
}

// Normalize adapts the upstream posture payload to an ordered slice. The
// payload arrives either as a list or as a keyed mapping of check-name to
// check, optionally wrapped in a result envelope; map entries are ordered by
// key for determinism. A nil slice is never returned.
func Normalize(raw []byte) []Check {
	checks := []Check{}
	if len(raw) == 0 {
		return checks
	}
	body := raw
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Result) > 0 {
		body = env.Result
	}

	var asList []Check
	if err := json.Unmarshal(body, &asList); err == nil {
		for _, c := range asList {
			if c.Type != "" {
				checks = append(checks, c)
			}
		}
		return checks
	}

	var asMap map[string]Check
	if err := json.Unmarshal(body, &asMap); err == nil {
		keys := make([]string, 0, len(asMap))
		for k := range asMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if c := asMap[k]; c.Type != "" {
				checks = append(checks, c)
			}
		}
	}
	return checks
}

// DetectOS classifies the device operating system from version-string
// heuristics, falling back to the reported os field (ignoring hypervisor
// noise) and then to model/version substrings.
func DetectOS(dev *identity.DeviceRecord) string {
	if dev == nil || dev.Empty() {
		return "Unknown"
	}
	model := dev.Model
	version := dev.OSVersion
	osField := dev.OS

	switch {
	case hasAnyPrefixPart(version, "10.0.", "11.0."):
		return "Windows"
	case hasAnyPrefixPart(version, "15.", "14.", "13."):
		return "macOS"
	case hasAnyPrefixPart(version, "18.", "17.", "16."):
		return "iOS"
	case hasAnyPrefixPart(version, "6.", "5.", "4."):
		return "Linux"
	}

	if osField != "" {
		lower := strings.ToLower(osField)
		if !strings.Contains(lower, "vmware") && !strings.Contains(lower, "virtualbox") {
			return osField
		}
	}

	modelLower := strings.ToLower(model)
	versionLower := strings.ToLower(version)
	switch {
	case strings.Contains(modelLower, "windows") || strings.Contains(versionLower, "windows"):
		return "Windows"
	case strings.Contains(modelLower, "mac") || strings.HasPrefix(model, "Mac"):
		return "macOS"
	case strings.Contains(modelLower, "linux") || strings.Contains(versionLower, "linux"):
		return "Linux"
	}

	if osField != "" {
		return osField
	}
	if model != "" {
		return model
	}
	return "Unknown"
}

func hasAnyPrefixPart(s string, parts ...string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// FilterRelevant keeps the checks that target the given operating system,
// matching OS names in rule text and version-number families in rule inputs.
// Unknown OS keeps only checks with no OS affinity at all.
func FilterRelevant(checks []Check, currentOS string) []Check {
	osLower := strings.ToLower(currentOS)
	isWindows := strings.Contains(osLower, "windows")
	isMac := strings.Contains(osLower, "mac") || strings.Contains(osLower, "darwin")
	isLinux := strings.Contains(osLower, "linux")
	isIOS := strings.Contains(osLower, "ios")
	isAndroid := strings.Contains(osLower, "android")

	out := []Check{}
	for _, check := range checks {
		if check.Type == "" {
			continue
		}
		ruleContent := strings.ToLower(check.Type + " " + check.Description + " " + check.RuleName)

		version := ""
		if check.Input != nil {
			version = check.Input.Version
		}
		isIOSVersion := hasAnyPrefixPart(version, "18.", "17.", "16.")
		isMacVersion := hasAnyPrefixPart(version, "15.", "14.", "13.")
		isWinVersion := hasAnyPrefixPart(version, "10.0.", "11.0.")
		isLinuxVersion := hasAnyPrefixPart(version, "6.", "5.", "4.")

		keep := false
		switch {
		case isWindows:
			keep = strings.Contains(ruleContent, "windows") || isWinVersion
		case isMac:
			keep = strings.Contains(ruleContent, "macos") ||
				strings.Contains(ruleContent, "timemachine") ||
				strings.Contains(ruleContent, "firewall") ||
				isMacVersion ||
				(check.Type == "disk_encryption" && !isIOSVersion && !isWinVersion && !isLinuxVersion)
		case isLinux:
			keep = strings.Contains(ruleContent, "linux") || strings.Contains(ruleContent, "kernel") || isLinuxVersion
		case isIOS:
			keep = strings.Contains(ruleContent, "ios") || isIOSVersion
		case isAndroid:
			keep = strings.Contains(ruleContent, "android")
		default:
			keep = !isIOSVersion && !isMacVersion && !isWinVersion && !isLinuxVersion &&
				!strings.Contains(ruleContent, "windows") && !strings.Contains(ruleContent, "macos") &&
				!strings.Contains(ruleContent, "linux") && !strings.Contains(ruleContent, "ios") &&
				!strings.Contains(ruleContent, "android")
		}
		if keep {
			out = append(out, check)
		}
	}
	return out
}
