package resample

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"golang.org/x/image/draw"
)

// ManifestFile is the artifact every model carries.
const ManifestFile = "manifest.json"

//go:embed manifests
var embedded embed.FS

// Builtin returns the embedded manifest tree, rooted so that paths read
// <modelID>/manifest.json.
func Builtin() fs.FS {
	sub, err := fs.Sub(embedded, "manifests")
	if err != nil {
		panic(err)
	}
	return sub
}

// Manifest describes how a model reconstructs its output.
type Manifest struct {
	ModelID      string  `json:"model_id"`
	Scale        int     `json:"scale"`
	Kernel       string  `json:"kernel"`
	DenoiseSigma float64 `json:"denoise_sigma,omitempty"`
	Sharpen      bool    `json:"sharpen,omitempty"`
}

// Kernel names accepted in manifests.
const (
	KernelNearest    = "nearest"
	KernelApproxLin  = "approx-bilinear"
	KernelBilinear   = "bilinear"
	KernelCatmullRom = "catmullrom"
	KernelLanczos    = "lanczos"
)

var interpolators = map[string]draw.Interpolator{
	KernelNearest:    draw.NearestNeighbor,
	KernelApproxLin:  draw.ApproxBiLinear,
	KernelBilinear:   draw.BiLinear,
	KernelCatmullRom: draw.CatmullRom,
}

// ParseManifest decodes and validates a manifest for modelID.
func ParseManifest(modelID string, b []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.ModelID != "" && m.ModelID != modelID {
		return Manifest{}, fmt.Errorf("manifest is for %q, not %q", m.ModelID, modelID)
	}
	m.ModelID = modelID
	if m.Scale != 2 && m.Scale != 4 {
		return Manifest{}, fmt.Errorf("unsupported scale %d", m.Scale)
	}
	if m.Kernel == "" {
		m.Kernel = KernelCatmullRom
	}
	if _, ok := interpolators[m.Kernel]; !ok && m.Kernel != KernelLanczos {
		return Manifest{}, fmt.Errorf("unknown kernel %q", m.Kernel)
	}
	if m.DenoiseSigma < 0 {
		return Manifest{}, fmt.Errorf("negative denoise_sigma %v", m.DenoiseSigma)
	}
	return m, nil
}

// bandable reports whether the kernel can render disjoint row bands
// independently. bild filters resize whole images only.
func (m Manifest) bandable() bool { return m.Kernel != KernelLanczos }
