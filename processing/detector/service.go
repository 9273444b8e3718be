package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nfnt/resize"

	"imagedetect/internal/imageio"
	"imagedetect/internal/models"
)

var (
	ErrThreshold = errors.New("confidence threshold must be within [0,1]")
	ErrServer    = errors.New("detection server error")
)

// Request is copied into a detection job at launch.
type Request struct {
	Model      string
	ImagePath  string
	Confidence float32
}

type Detector interface {
	Detect(ctx context.Context, req Request) (models.DetectionResult, error)
}

// RemoteDetector sends one image per websocket session to a detection server
// and renders the returned boxes locally.
type RemoteDetector struct {
	serverURL string
	dialer    *websocket.Dialer

	maxUploadSide uint
	names         ClassNames

	log *slog.Logger
}

type Option func(*RemoteDetector)

func WithMaxUploadSide(side uint) Option {
	return func(d *RemoteDetector) { d.maxUploadSide = side }
}

func WithClassNames(names ClassNames) Option {
	return func(d *RemoteDetector) { d.names = names }
}

func WithLogger(log *slog.Logger) Option {
	return func(d *RemoteDetector) { d.log = log }
}

func NewRemoteDetector(host string, opts ...Option) *RemoteDetector {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	d := &RemoteDetector{
		serverURL: u.String(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RemoteDetector) URL() string {
	return d.serverURL
}

func validate(req Request) error {
	if req.Confidence < 0 || req.Confidence > 1 {
		return fmt.Errorf("%w: got %.2f", ErrThreshold, req.Confidence)
	}
	if req.Model != models.DefaultModel {
		if _, err := os.Stat(req.Model); err != nil {
			return fmt.Errorf("model weights: %w", err)
		}
	}
	if req.ImagePath == "" {
		return errors.New("no image path")
	}
	return nil
}

func (d *RemoteDetector) Detect(ctx context.Context, req Request) (models.DetectionResult, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		return models.DetectionResult{}, err
	}

	img, err := imageio.Load(req.ImagePath)
	if err != nil {
		return models.DetectionResult{}, err
	}

	payload, err := encodeUpload(img, d.maxUploadSide)
	if err != nil {
		return models.DetectionResult{}, err
	}

	resp, err := d.roundTrip(ctx, req, payload)
	if err != nil {
		return models.DetectionResult{}, err
	}

	var boxes []models.DetectedBox
	for _, r := range resp.Results {
		for _, box := range r.Boxes {
			if box.Confidence < req.Confidence {
				continue
			}
			box.ClassName = d.names.Resolve(box, resp.Names)
			boxes = append(boxes, box)
		}
	}

	result := models.DetectionResult{
		Boxes:     boxes,
		Annotated: Annotate(img, boxes),
		Source:    req.ImagePath,
		Model:     req.Model,
		Elapsed:   time.Since(start),
	}

	d.log.Info("detection finished",
		"image", filepath.Base(req.ImagePath),
		"model", req.Model,
		"boxes", len(boxes),
		"elapsed", result.Elapsed)

	return result, nil
}

func (d *RemoteDetector) roundTrip(ctx context.Context, req Request, payload []byte) (*models.DetectResponse, error) {
	d.log.Debug("connecting to detector server", "url", d.serverURL)

	conn, _, err := d.dialer.DialContext(ctx, d.serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", d.serverURL, err)
	}
	defer conn.Close()

	// Unblocks reads and writes when the job is cancelled or times out.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	id := uuid.NewString()
	header := models.DetectRequest{ID: id, Model: req.Model, Confidence: req.Confidence}

	if err := conn.WriteJSON(header); err != nil {
		return nil, d.ioErr(ctx, "send request", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return nil, d.ioErr(ctx, "send image", err)
	}

	var resp models.DetectResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, d.ioErr(ctx, "read response", err)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrServer, resp.Error)
	}
	if resp.ID != id {
		return nil, fmt.Errorf("%w: response id %q does not match request %q", ErrServer, resp.ID, id)
	}

	return &resp, nil
}

func (d *RemoteDetector) ioErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// encodeUpload JPEG-encodes img, shrinking it so neither side exceeds maxSide.
// Boxes come back normalized, so the downscale does not affect annotation.
func encodeUpload(img image.Image, maxSide uint) ([]byte, error) {
	if maxSide > 0 {
		img = resize.Thumbnail(maxSide, maxSide, img, resize.Bilinear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("JPEG encode: %w", err)
	}
	return buf.Bytes(), nil
}
