package models

import (
	"image"
	"time"
)

// DefaultModel asks the detection server for its bundled pretrained weights.
const DefaultModel = "default"

// DetectedBox is one predicted object. Box is normalized [y1, x1, y2, x2].
type DetectedBox struct {
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"label"`
	Confidence float32    `json:"confidence"`
	Box        [4]float32 `json:"box"`
}

// DetectionResult is produced once per detection run and never mutated afterwards.
type DetectionResult struct {
	Boxes     []DetectedBox
	Annotated image.Image

	Source  string
	Model   string
	Elapsed time.Duration
}

// Rect converts the normalized box to pixel coordinates inside bounds.
func (b DetectedBox) Rect(bounds image.Rectangle) image.Rectangle {
	w := float32(bounds.Dx())
	h := float32(bounds.Dy())

	y1 := int(b.Box[0] * h)
	x1 := int(b.Box[1] * w)
	y2 := int(b.Box[2] * h)
	x2 := int(b.Box[3] * w)

	return image.Rect(x1, y1, x2, y2).Add(bounds.Min).Intersect(bounds)
}

type ClassCount struct {
	Class string
	Count int
}

// Tally holds per-class counts in first-seen order.
type Tally struct {
	Counts []ClassCount
	Total  int
}

func (t Tally) Count(class string) int {
	for _, c := range t.Counts {
		if c.Class == class {
			return c.Count
		}
	}
	return 0
}
