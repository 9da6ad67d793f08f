package types

import "image"

// Tensor is a dense row-major float32 batch handed to an inference backend.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// CropResult describes one face written by the extraction stage.
type CropResult struct {
	Source string          `json:"source"`
	Path   string          `json:"path"`
	Box    image.Rectangle `json:"box"`
}

// ErrorResult is the JSON body returned for failed API requests.
type ErrorResult struct {
	Error string `json:"error"`
}
