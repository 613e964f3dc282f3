package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// geometryConfig is the on-disk shape of an optional device-geometry
// config file. Fields absent from the file fall back to the reference
// design; a field present with value 0 is kept as 0.
type geometryConfig struct {
	MajorAddr  *uint32 `json:"major_addr,omitempty"`
	MinorAddr  *uint32 `json:"minor_addr,omitempty"`
	SectorSize *uint32 `json:"sector_size,omitempty"`
	Image      string  `json:"image,omitempty"`
}

// defaultGeometryConfig mirrors the reference layout: two 4096 B
// sectors back to back starting at address 0.
func defaultGeometryConfig() geometryConfig {
	major := uint32(0)
	minor := uint32(0x1000)
	size := uint32(4096)
	return geometryConfig{MajorAddr: &major, MinorAddr: &minor, SectorSize: &size}
}

// loadGeometryConfig reads path as JSON-with-comments (hujson), merging
// any present fields over the reference defaults. A missing path is not
// an error - the caller only ever passes one when the --config flag was
// set.
func loadGeometryConfig(path string) (geometryConfig, error) {
	cfg := defaultGeometryConfig()

	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return geometryConfig{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return geometryConfig{}, fmt.Errorf("invalid JSONC in %q: %w", path, err)
	}

	var override geometryConfig
	if err := json.Unmarshal(standardized, &override); err != nil {
		return geometryConfig{}, fmt.Errorf("invalid config %q: %w", path, err)
	}

	if override.MajorAddr != nil {
		cfg.MajorAddr = override.MajorAddr
	}
	if override.MinorAddr != nil {
		cfg.MinorAddr = override.MinorAddr
	}
	if override.SectorSize != nil {
		cfg.SectorSize = override.SectorSize
	}
	if override.Image != "" {
		cfg.Image = override.Image
	}

	return cfg, nil
}
