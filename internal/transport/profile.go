// Package transport implements the device.Session collaborator over SSH,
// with per-dialect profiles describing prompt and config-mode behavior.
package transport

import (
	"fmt"
	"regexp"
)

// Profile describes the CLI dialect of a device family.
type Profile struct {
	Name           string
	PromptPattern  *regexp.Regexp // exec or privileged prompt at end of output
	PrivPattern    *regexp.Regexp // privileged prompt only
	ConfigPrompt   *regexp.Regexp // configuration-mode prompt, any sub-mode
	PasswordPrompt *regexp.Regexp
	EnableCommand  string
	ConfigEnter    string
	ConfigExit     string
	SaveCommand    string
}

var profiles = map[string]*Profile{
	"cisco_ios": {
		Name:           "cisco_ios",
		PromptPattern:  regexp.MustCompile(`(?m)^[\w.@/:-]+[>#]\s*$`),
		PrivPattern:    regexp.MustCompile(`(?m)^[\w.@/:-]+#\s*$`),
		ConfigPrompt:   regexp.MustCompile(`(?m)^[\w.@/:-]+\([\w-]+\)#\s*$`),
		PasswordPrompt: regexp.MustCompile(`(?i)password:?\s*$`),
		EnableCommand:  "enable",
		ConfigEnter:    "configure terminal",
		ConfigExit:     "end",
		SaveCommand:    "write memory",
	},
}

// Lookup resolves a device_type tag to its transport profile.
func Lookup(deviceType string) (*Profile, error) {
	p, ok := profiles[deviceType]
	if !ok {
		return nil, fmt.Errorf("unknown transport profile %q", deviceType)
	}
	return p, nil
}
