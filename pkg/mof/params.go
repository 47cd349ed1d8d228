// Package mof drives the Ministry of Flat console unwrapper as an
// external process. The flag grammar and the True/False literals are
// the engine's documented contract; this package reproduces it
// verbatim and never interprets the flags itself.
package mof

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Resolution bounds recognized by the engine (powers of two).
const (
	MinResolution = 32
	MaxResolution = 4096
)

// Params are the unwrap parameters passed to the engine per mesh.
type Params struct {
	// Resolution is the target texture resolution; it determines
	// island spacing. Power of two in [32, 4096].
	Resolution int

	// AspectRatio is the width/height ratio for non-square textures.
	AspectRatio float64

	// SeparateHardEdges guarantees hard edges are separated for
	// baking.
	SeparateHardEdges bool

	// UseNormals classifies polygons using mesh normals.
	UseNormals bool

	// OverlapIdentical overlaps identical geometry in UV space.
	OverlapIdentical bool

	// OverlapMirrored overlaps mirrored geometry in UV space.
	OverlapMirrored bool

	// UDIMTiles is the number of UDIM tiles to split texture space
	// across.
	UDIMTiles int

	// WorldScale scales UVs to real-world dimensions; TextureDensity
	// (pixels per unit) only matters when it is set.
	WorldScale     bool
	TextureDensity float64

	// SeamCenter is the world-space center point for seam
	// orientation.
	SeamCenter v3.Vec
}

// DefaultParams mirrors the engine's recommended defaults.
func DefaultParams() Params {
	return Params{
		Resolution:     1024,
		AspectRatio:    1.0,
		UDIMTiles:      1,
		TextureDensity: 1024,
	}
}

// Validate checks the parameter ranges the engine accepts.
func (p Params) Validate() error {
	if p.Resolution < MinResolution || p.Resolution > MaxResolution || p.Resolution&(p.Resolution-1) != 0 {
		return fmt.Errorf("resolution %d: want a power of two in [%d, %d]", p.Resolution, MinResolution, MaxResolution)
	}
	if p.AspectRatio <= 0.001 || p.AspectRatio > 1000 {
		return fmt.Errorf("aspect ratio %g out of range (0.001, 1000]", p.AspectRatio)
	}
	if p.UDIMTiles < 1 || p.UDIMTiles > 100 {
		return fmt.Errorf("udim tiles %d out of range [1, 100]", p.UDIMTiles)
	}
	if p.WorldScale && p.TextureDensity < 1 {
		return fmt.Errorf("texture density %g: must be at least 1 in world scale mode", p.TextureDensity)
	}
	return nil
}

// Args builds the engine's argv: input file, output file, then the
// flag list.
func (p Params) Args(inPath, outPath string) []string {
	return []string{
		inPath,
		outPath,
		"-separate", engineBool(p.SeparateHardEdges),
		"-resolution", fmt.Sprintf("%d", p.Resolution),
		"-aspect", fmt.Sprintf("%.6f", p.AspectRatio),
		"-normals", engineBool(p.UseNormals),
		"-udims", fmt.Sprintf("%d", p.UDIMTiles),
		"-overlap", engineBool(p.OverlapIdentical),
		"-mirror", engineBool(p.OverlapMirrored),
		"-worldscale", engineBool(p.WorldScale),
		"-density", fmt.Sprintf("%.0f", p.TextureDensity),
		"-center",
		fmt.Sprintf("%.6f", p.SeamCenter.X),
		fmt.Sprintf("%.6f", p.SeamCenter.Y),
		fmt.Sprintf("%.6f", p.SeamCenter.Z),
	}
}

// engineBool renders a boolean in the engine's capitalized literal
// form.
func engineBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
