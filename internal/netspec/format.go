package netspec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bayesnet/internal/ctxlog"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// ParseFormat accepts a format name as given on a command line.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatYAML, FormatJSON, FormatHCL:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Load reads the definition at path using the decoder its extension selects.
func Load(ctx context.Context, path string) (Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading network definition.", "path", path)

	format, err := FormatFromPath(path)
	if err != nil {
		return Definition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}
	def, err := Parse(data, format, filepath.Base(path))
	if err != nil {
		return Definition{}, fmt.Errorf("load %s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	logger.Debug("Loaded network definition.", "path", path, "variables", len(def.Variables), "cpts", len(def.CPTs))
	return def, nil
}

// Parse decodes data in the given format. filename only labels diagnostics.
func Parse(data []byte, format Format, filename string) (Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return Definition{}, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &def); err != nil {
			return Definition{}, fmt.Errorf("decode json: %w", err)
		}
	case FormatHCL:
		return decodeHCL(data, filename)
	default:
		return Definition{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return def, nil
}

// Encode writes d to w in the given format.
func (d Definition) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatHCL:
		_, err := w.Write(encodeHCL(d))
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
