// Package workflow holds the load → detect → save/speak state machine of a
// single window. Controller is not safe for concurrent use; the UI calls it
// from the main goroutine only.
package workflow

import (
	"errors"
	"fmt"
	"path/filepath"

	"imagedetect/internal/imageio"
	"imagedetect/internal/models"
	"imagedetect/processing/counter"
	"imagedetect/processing/detector"
)

type State int

const (
	NoImage State = iota
	ImageLoaded
	Detecting
	Detected
)

func (s State) String() string {
	switch s {
	case NoImage:
		return "NoImage"
	case ImageLoaded:
		return "ImageLoaded"
	case Detecting:
		return "Detecting"
	case Detected:
		return "Detected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrStale             = errors.New("detection outcome is from a superseded run")
	ErrNoResult          = errors.New("no detection result")
)

// Actions reports which user actions are enabled.
type Actions struct {
	Load   bool
	Detect bool
	Save   bool
	Speak  bool
}

type Controller struct {
	state State

	imagePath string
	result    *models.DetectionResult
	tally     models.Tally

	// generation increases on every load and detect so that late outcomes
	// from an earlier run can be recognized and dropped.
	generation uint64
}

func NewController() *Controller {
	return &Controller{state: NoImage}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) ImagePath() string { return c.imagePath }

func (c *Controller) ImageName() string {
	if c.imagePath == "" {
		return ""
	}
	return filepath.Base(c.imagePath)
}

func (c *Controller) Actions() Actions {
	switch c.state {
	case ImageLoaded:
		return Actions{Load: true, Detect: true}
	case Detecting:
		return Actions{}
	case Detected:
		return Actions{Load: true, Detect: true, Save: true, Speak: true}
	default:
		return Actions{Load: true}
	}
}

// LoadImage moves to ImageLoaded from any state, discarding prior results.
// It reports whether a detection was in flight.
func (c *Controller) LoadImage(path string) (wasDetecting bool) {
	wasDetecting = c.state == Detecting

	c.generation++
	c.imagePath = path
	c.result = nil
	c.tally = models.Tally{}
	c.state = ImageLoaded

	return wasDetecting
}

// BeginDetect moves to Detecting and returns the job to run. Model and
// confidence are copied into the job here.
func (c *Controller) BeginDetect(model string, confidence float32) (detector.Job, error) {
	if c.state != ImageLoaded && c.state != Detected {
		return detector.Job{}, fmt.Errorf("%w: detect from %s", ErrInvalidTransition, c.state)
	}

	c.generation++
	c.state = Detecting

	return detector.Job{
		Generation: c.generation,
		Request: detector.Request{
			Model:      model,
			ImagePath:  c.imagePath,
			Confidence: confidence,
		},
	}, nil
}

// Finish applies a detection outcome. Success moves to Detected with the
// result and its tally; failure moves back to ImageLoaded.
func (c *Controller) Finish(o detector.Outcome) error {
	if c.state != Detecting || o.Job.Generation != c.generation {
		return ErrStale
	}

	if o.Err != nil {
		c.state = ImageLoaded
		c.result = nil
		c.tally = models.Tally{}
		return o.Err
	}

	res := o.Result
	c.result = &res
	c.tally = counter.Aggregate(res)
	c.state = Detected

	return nil
}

func (c *Controller) Result() (models.DetectionResult, error) {
	if c.state != Detected || c.result == nil {
		return models.DetectionResult{}, ErrNoResult
	}
	return *c.result, nil
}

func (c *Controller) Tally() (models.Tally, error) {
	if c.state != Detected || c.result == nil {
		return models.Tally{}, ErrNoResult
	}
	return c.tally, nil
}

// SaveSuggestion is the default file name offered when saving the result.
func (c *Controller) SaveSuggestion() string {
	return imageio.DefaultSaveName(c.ImageName())
}

// SaveResult writes the annotated image, appending .jpg when path has no
// savable extension, and returns the path written.
func (c *Controller) SaveResult(path string) (string, error) {
	res, err := c.Result()
	if err != nil {
		return "", err
	}

	path = imageio.EnsureExtension(path)
	if err := imageio.Save(res.Annotated, path); err != nil {
		return "", err
	}
	return path, nil
}
