package types

// Model is a selectable upscaling model.
type Model struct {
	// Stable identifier for the model.
	// example: Xenova/swin2SR-classical-sr-x2-64
	ID string `json:"id" example:"Xenova/swin2SR-classical-sr-x2-64"`
	// Human-friendly name.
	// example: Super-Resolution 2x
	Name string `json:"name" example:"Super-Resolution 2x"`
	// Short description of what the model is good at.
	// example: Double image resolution (classical images)
	Description string `json:"description" example:"Double image resolution (classical images)"`
	// Magnification applied to each dimension.
	// example: 2x
	Scale string `json:"scale" example:"2x"`
}
