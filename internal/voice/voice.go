// Package voice holds the fixed catalog of narration voices and the
// per-provider voice IDs behind each friendly name.
package voice

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVoice means a requested voice name is not in the catalog.
// Unrecognized names always fail — default substitution is the caller's
// decision, never applied silently here.
var ErrUnknownVoice = errors.New("unknown voice")

// Voice maps a friendly narration-voice name to the provider-specific
// voice IDs that realize it.
type Voice struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	IDs         map[string]string `yaml:"ids"`
}

// IDFor returns the voice ID for the given provider key ("azure",
// "openai", "gemini").
func (v Voice) IDFor(provider string) (string, error) {
	id, ok := v.IDs[provider]
	if !ok || id == "" {
		return "", fmt.Errorf("voice %q has no %s voice ID", v.Name, provider)
	}
	return id, nil
}

// Catalog is an ordered set of voices, resolvable by name.
type Catalog struct {
	voices []Voice
	byName map[string]Voice
}

// Default returns the built-in catalog: six Mandarin narration voices,
// with the closest available counterpart on each provider.
func Default() *Catalog {
	c, err := newCatalog([]Voice{
		{
			Name:        "xiaoxiao",
			Description: "晓晓 — warm, lively general-purpose narrator",
			IDs:         map[string]string{"azure": "zh-CN-XiaoxiaoNeural", "openai": "alloy", "gemini": "Kore"},
		},
		{
			Name:        "xiaoyi",
			Description: "晓伊 — bright, youthful",
			IDs:         map[string]string{"azure": "zh-CN-XiaoyiNeural", "openai": "nova", "gemini": "Aoede"},
		},
		{
			Name:        "xiaoxuan",
			Description: "晓萱 — calm, confident",
			IDs:         map[string]string{"azure": "zh-CN-XiaoxuanNeural", "openai": "shimmer", "gemini": "Leda"},
		},
		{
			Name:        "xiaozhen",
			Description: "晓甄 — expressive storyteller",
			IDs:         map[string]string{"azure": "zh-CN-XiaozhenNeural", "openai": "fable", "gemini": "Callirrhoe"},
		},
		{
			Name:        "xiaohan",
			Description: "晓涵 — gentle, soothing",
			IDs:         map[string]string{"azure": "zh-CN-XiaohanNeural", "openai": "echo", "gemini": "Autonoe"},
		},
		{
			Name:        "xiaomeng",
			Description: "晓梦 — soft, airy",
			IDs:         map[string]string{"azure": "zh-CN-XiaomengNeural", "openai": "coral", "gemini": "Laomedeia"},
		},
	})
	if err != nil {
		panic(err) // the built-in table is static; a failure here is a programmer error
	}
	return c
}

// LoadFile reads a catalog from a YAML file, replacing the built-in set.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voice catalog: %w", err)
	}

	var file struct {
		Voices []Voice `yaml:"voices"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse voice catalog: %w", err)
	}
	if len(file.Voices) == 0 {
		return nil, fmt.Errorf("voice catalog %s defines no voices", path)
	}

	return newCatalog(file.Voices)
}

func newCatalog(voices []Voice) (*Catalog, error) {
	byName := make(map[string]Voice, len(voices))
	for _, v := range voices {
		if v.Name == "" {
			return nil, fmt.Errorf("voice catalog entry has no name")
		}
		if len(v.IDs) == 0 {
			return nil, fmt.Errorf("voice %q has no provider IDs", v.Name)
		}
		if _, dup := byName[v.Name]; dup {
			return nil, fmt.Errorf("duplicate voice name %q", v.Name)
		}
		byName[v.Name] = v
	}
	return &Catalog{voices: voices, byName: byName}, nil
}

// Resolve looks up a voice by name.
func (c *Catalog) Resolve(name string) (Voice, error) {
	v, ok := c.byName[name]
	if !ok {
		return Voice{}, fmt.Errorf("%w: %q", ErrUnknownVoice, name)
	}
	return v, nil
}

// Names lists the voice names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.voices))
	for i, v := range c.voices {
		names[i] = v.Name
	}
	return names
}

// Voices returns the catalog entries in declaration order.
func (c *Catalog) Voices() []Voice {
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}
