package registry

import "strconv"

// Scale is the magnification a model applies to each spatial dimension.
type Scale int

const (
	Scale2x Scale = 2
	Scale4x Scale = 4
)

// String renders the scale the way it appears in file names, e.g. "2x".
func (s Scale) String() string { return strconv.Itoa(int(s)) + "x" }

// Model describes one selectable upscaling model. Values are immutable.
type Model struct {
	ID          string
	Name        string
	Description string
	Scale       Scale
}

// builtin is the fixed catalog, in display order.
var builtin = []Model{
	{
		ID:          "Xenova/swin2SR-classical-sr-x2-64",
		Name:        "Super-Resolution 2x",
		Description: "Double image resolution (classical images)",
		Scale:       Scale2x,
	},
	{
		ID:          "Xenova/swin2SR-classical-sr-x4-64",
		Name:        "Super-Resolution 4x",
		Description: "Quadruple image resolution (classical images)",
		Scale:       Scale4x,
	},
	{
		ID:          "Xenova/swin2SR-realworld-sr-x4-64-bsrgan-psnr",
		Name:        "Real-World 4x Upscale",
		Description: "Enhance real-world photos (4x)",
		Scale:       Scale4x,
	},
	{
		ID:          "Xenova/swin2SR-compressed-sr-x4-48",
		Name:        "Compressed Image Enhancer",
		Description: "Restore compressed/JPEG images (4x)",
		Scale:       Scale4x,
	},
	{
		ID:          "Xenova/4x_APISR_GRL_GAN_generator-onnx",
		Name:        "Anime/Image Upscaler",
		Description: "GAN-based 4x upscaling for anime/illustrations",
		Scale:       Scale4x,
	},
}

// Catalog is a read-only view over the model list.
type Catalog struct {
	models []Model
}

// Default returns the built-in catalog.
func Default() *Catalog { return &Catalog{models: builtin} }

// List returns the models in catalog order. The slice is a copy.
func (c *Catalog) List() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Find looks a model up by id.
func (c *Catalog) Find(id string) (Model, error) {
	for _, m := range c.models {
		if m.ID == id {
			return m, nil
		}
	}
	return Model{}, ErrUnknownModel(id)
}

// Contains reports whether m is exactly a catalog entry.
func (c *Catalog) Contains(m Model) bool {
	found, err := c.Find(m.ID)
	return err == nil && found == m
}

// First returns the first catalog entry.
func (c *Catalog) First() Model { return c.models[0] }
