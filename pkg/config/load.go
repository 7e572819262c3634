package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Option customises Load.
type Option func(*loader)

// Overlay is an application-supplied configuration section. Extending servers
// register overlays to add their own top-level sections to the schema without
// touching the base validator: the section is decoded strictly into Target
// and Validate, when set, runs after decoding (and after defaults, so it can
// also enforce that the section is present).
type Overlay struct {
	// Section is the top-level key the overlay owns.
	Section string

	// Target receives the decoded section. Must be a non-nil pointer.
	Target any

	// Validate is called once the section (if present) has been decoded.
	Validate func() error
}

// WithOverlay registers an application overlay section.
func WithOverlay(o Overlay) Option {
	return func(l *loader) {
		l.overlays = append(l.overlays, o)
	}
}

type loader struct {
	overlays []Overlay
}

// sectionDecoder decodes one top-level section into v, rejecting unknown
// fields. Format-specific; produced by the splitters below.
type sectionDecoder func(v any) error

// Load reads, defaults and validates the configuration file at path. The
// format is chosen by extension: .json, or .yaml/.yml. Unknown or malformed
// top-level keys and unknown fields inside any section are errors; a partially
// valid configuration is never returned.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var sections map[string]sectionDecoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		sections, err = splitJSON(data)
	case ".yaml", ".yml":
		sections, err = splitYAML(data)
	default:
		return nil, fmt.Errorf("unsupported configuration format %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	cfg := Default()

	base := map[string]any{
		"server":      &cfg.Server,
		"security":    &cfg.Security,
		"rate_limit":  &cfg.RateLimit,
		"cors":        &cfg.CORS,
		"certificate": &cfg.Certificate,
		"auth":        &cfg.Auth,
		"telemetry":   &cfg.Telemetry,
	}

	overlayTargets := make(map[string]any, len(l.overlays))
	for _, o := range l.overlays {
		if o.Section == "" || o.Target == nil {
			return nil, fmt.Errorf("overlay must have a section name and a target")
		}
		if _, clash := base[o.Section]; clash {
			return nil, fmt.Errorf("overlay section %q collides with a base section", o.Section)
		}
		overlayTargets[o.Section] = o.Target
	}

	for name, decode := range sections {
		target, ok := base[name]
		if !ok {
			target, ok = overlayTargets[name]
		}
		if !ok {
			return nil, fmt.Errorf("unknown configuration section %q in %q", name, path)
		}
		if err := decode(target); err != nil {
			return nil, fmt.Errorf("invalid %q section in %q: %w", name, path, err)
		}
	}

	for _, o := range l.overlays {
		if o.Validate == nil {
			continue
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %q section in %q: %w", o.Section, path, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitJSON splits a JSON document into per-section strict decoders.
func splitJSON(data []byte) (map[string]sectionDecoder, error) {
	raw := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	}

	sections := make(map[string]sectionDecoder, len(raw))
	for name, section := range raw {
		sections[name] = func(v any) error {
			dec := json.NewDecoder(bytes.NewReader(section))
			dec.DisallowUnknownFields()
			return dec.Decode(v)
		}
	}
	return sections, nil
}

// splitYAML splits a YAML document into per-section strict decoders.
func splitYAML(data []byte) (map[string]sectionDecoder, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return map[string]sectionDecoder{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping")
	}

	sections := make(map[string]sectionDecoder, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		node := root.Content[i+1]
		sections[name] = func(v any) error {
			// Re-encode the subtree so the strict decoder sees it alone.
			encoded, err := yaml.Marshal(node)
			if err != nil {
				return err
			}
			dec := yaml.NewDecoder(bytes.NewReader(encoded))
			dec.KnownFields(true)
			if err := dec.Decode(v); err != nil {
				return err
			}
			return nil
		}
	}
	return sections, nil
}
