package garmentnet

import (
	"bytes"
	"image"
	_ "image/jpeg" // decoders for the formats the catalog accepts
	_ "image/png"
	"time"

	"github.com/jhelttu/closet-go/internal/errors"
	"github.com/jhelttu/closet-go/internal/labels"
	xdraw "golang.org/x/image/draw"
)

// Caffe-style channel means the model was trained with. The preprocessing
// contract is BGR channel order with per-channel mean subtraction and no
// scaling.
const (
	meanBlue  = 103.939
	meanGreen = 116.779
	meanRed   = 123.68
)

// Classification holds one label per attribute group. Immutable once
// produced.
type Classification struct {
	SubCategory string `json:"subCategory"`
	ArticleType string `json:"articleType"`
	Gender      string `json:"gender"`
	BaseColour  string `json:"baseColour"`
	Season      string `json:"season"`
	Usage       string `json:"usage"`
}

// Get returns the label for the given attribute group.
func (c *Classification) Get(attr labels.Attribute) string {
	switch attr {
	case labels.SubCategory:
		return c.SubCategory
	case labels.ArticleType:
		return c.ArticleType
	case labels.Gender:
		return c.Gender
	case labels.BaseColour:
		return c.BaseColour
	case labels.Season:
		return c.Season
	case labels.Usage:
		return c.Usage
	default:
		return ""
	}
}

func (c *Classification) set(attr labels.Attribute, label string) {
	switch attr {
	case labels.SubCategory:
		c.SubCategory = label
	case labels.ArticleType:
		c.ArticleType = label
	case labels.Gender:
		c.Gender = label
	case labels.BaseColour:
		c.BaseColour = label
	case labels.Season:
		c.Season = label
	case labels.Usage:
		c.Usage = label
	}
}

// Classify decodes imageData, runs it through the predictor and resolves
// each head's arg-max index against the label table. The decoded buffer is
// scoped to this call and released on every exit path.
func (gn *GarmentNet) Classify(imageData []byte) (Classification, error) {
	start := time.Now()

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return Classification{}, errors.New(err).
			Component("garmentnet").
			Category(errors.CategoryImageDecode).
			Context("image_size_bytes", len(imageData)).
			Build()
	}

	input := imageToTensor(img)

	probabilities, err := gn.predictor.Predict(input)
	if err != nil {
		return Classification{}, errors.New(err).
			Component("garmentnet").
			Category(errors.CategoryInference).
			Context("image_format", format).
			Build()
	}
	if len(probabilities) != NumHeads {
		return Classification{}, errors.Newf("predictor returned %d probability vectors, want %d", len(probabilities), NumHeads).
			Component("garmentnet").
			Category(errors.CategoryInference).
			Build()
	}

	var result Classification
	for i, attr := range labels.Attributes {
		index := argMax(probabilities[i])
		label, err := gn.table.Resolve(attr, index)
		if err != nil {
			return Classification{}, err
		}
		result.set(attr, label)
	}

	gn.log.Debug("image classified",
		"format", format,
		"sub_category", result.SubCategory,
		"article_type", result.ArticleType,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// imageToTensor resizes the image to the fixed model input and lays it out
// as an NHWC float32 tensor with batch size 1. Channel order and mean
// subtraction follow the training contract.
func imageToTensor(img image.Image) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, InputDim, InputDim))
	xdraw.ApproxBiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), xdraw.Over, nil)

	out := make([]float32, 1*InputDim*InputDim*3)
	for y := range InputDim {
		for x := range InputDim {
			r32, g32, b32, _ := resized.At(x, y).RGBA()
			// Convert 16-bit color to 8-bit
			r := float32(r32 >> 8)
			g := float32(g32 >> 8)
			b := float32(b32 >> 8)

			base := ((y * InputDim) + x) * 3
			out[base+0] = b - meanBlue
			out[base+1] = g - meanGreen
			out[base+2] = r - meanRed
		}
	}
	return out
}

// argMax returns the index of the largest probability. Strict comparison
// keeps the first occurrence, so ties resolve to the lowest index.
func argMax(probabilities []float32) int {
	best := 0
	for i, p := range probabilities {
		if p > probabilities[best] {
			best = i
		}
	}
	return best
}
