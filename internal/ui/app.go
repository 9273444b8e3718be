package ui

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"imagedetect/internal/config"
	"imagedetect/internal/imageio"
	"imagedetect/internal/models"
	"imagedetect/internal/phrases"
	"imagedetect/internal/ui/cwidget"
	"imagedetect/internal/workflow"
	"imagedetect/processing/detector"
	"imagedetect/processing/speech"
)

type DetectApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config    *config.Config
	processor *detector.Processor
	narrator  *speech.Narrator
	book      *phrases.Book
	log       *slog.Logger

	ctrl *workflow.Controller

	// runOnMain hands detection outcomes back to the UI goroutine.
	runOnMain func(func())

	imageCanvas  *canvas.Image
	placeholder  *widget.Label
	loadBtn      *widget.Button
	detectBtn    *widget.Button
	saveBtn      *widget.Button
	speakBtn     *widget.Button
	busy         *widget.ProgressBarInfinite
	latencyLabel *widget.Label
	modelEntry   *widget.Entry
	confInput    *cwidget.Input[float64]

	resultList  *widget.List
	resultLines []string
}

// CreateApp builds the main window on a new fyne application. narrator may be
// nil when no speech engine is available; Speak then stays disabled.
func CreateApp(cfg *config.Config, p *detector.Processor, n *speech.Narrator, book *phrases.Book, log *slog.Logger) *DetectApp {
	return NewDetectApp(app.New(), cfg, p, n, book, log)
}

func NewDetectApp(a fyne.App, cfg *config.Config, p *detector.Processor, n *speech.Narrator, book *phrases.Book, log *slog.Logger) *DetectApp {
	w := a.NewWindow(book.Text("WindowTitle"))
	w.Resize(fyne.NewSize(1000, 700))

	da := &DetectApp{
		fyneApp:   a,
		mainWin:   w,
		config:    cfg,
		processor: p,
		narrator:  n,
		book:      book,
		log:       log,
		ctrl:      workflow.NewController(),
		runOnMain: fyne.Do,
	}
	da.build()
	da.render()

	return da
}

func (a *DetectApp) build() {
	a.imageCanvas = canvas.NewImageFromImage(nil)
	a.imageCanvas.FillMode = canvas.ImageFillContain
	a.imageCanvas.SetMinSize(fyne.NewSize(500, 400))

	a.placeholder = widget.NewLabelWithStyle(a.book.Text("NoImage"), fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	a.loadBtn = widget.NewButtonWithIcon(a.book.Text("LoadButton"), theme.FolderOpenIcon(), a.showOpenDialog)
	a.detectBtn = widget.NewButtonWithIcon(a.book.Text("DetectButton"), theme.SearchIcon(), a.Detect)
	a.saveBtn = widget.NewButtonWithIcon(a.book.Text("SaveButton"), theme.DocumentSaveIcon(), a.showSaveDialog)
	a.speakBtn = widget.NewButtonWithIcon(a.book.Text("SpeakButton"), theme.VolumeUpIcon(), a.Speak)

	a.busy = widget.NewProgressBarInfinite()
	a.busy.Hide()

	a.latencyLabel = widget.NewLabel("")

	a.resultList = widget.NewList(
		func() int { return len(a.resultLines) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(a.resultLines[id])
		},
	)

	a.modelEntry = widget.NewEntry()
	a.modelEntry.SetText(a.config.GetModel())
	a.modelEntry.OnChanged = func(s string) {
		a.config.SetModel(s)
	}

	browse := widget.NewButtonWithIcon(a.book.Text("BrowseButton"), theme.FolderOpenIcon(), a.showModelDialog)
	useDefault := widget.NewButton(a.book.Text("DefaultModelButton"), func() {
		a.modelEntry.SetText(models.DefaultModel)
	})

	a.confInput = cwidget.NewFloatInput(
		a.book.Text("ConfidenceLabel"),
		"0.0 - 1.0",
		float64(a.config.GetConfidence()),
		0, 1,
		func(v float64) {
			if err := a.config.SetConfidence(float32(v)); err != nil {
				a.log.Warn("confidence rejected", "err", err)
			}
		},
	)

	imageArea := container.NewStack(a.placeholder, container.NewScroll(a.imageCanvas))

	buttons := container.NewGridWithColumns(4, a.loadBtn, a.detectBtn, a.saveBtn, a.speakBtn)

	left := container.NewBorder(
		nil,
		container.NewVBox(a.busy, buttons),
		nil, nil,
		imageArea,
	)

	settings := container.NewVBox(
		widget.NewLabelWithStyle(a.book.Text("ModelLabel"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, nil, container.NewHBox(browse, useDefault), a.modelEntry),
		a.confInput,
		widget.NewSeparator(),
		a.latencyLabel,
	)

	right := container.NewBorder(
		container.NewVBox(
			settings,
			widget.NewSeparator(),
			widget.NewLabelWithStyle(a.book.Text("ResultsHeading"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		),
		nil, nil, nil,
		a.resultList,
	)

	split := container.NewHSplit(
		container.NewPadded(left),
		container.NewPadded(right),
	)
	split.SetOffset(0.72)

	a.mainWin.SetContent(split)
}

func (a *DetectApp) Run() {
	a.mainWin.SetCloseIntercept(a.shutdown)
	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *DetectApp) shutdown() {
	if err := a.config.SaveByDefault(); err != nil {
		a.log.Warn("saving config failed", "err", err)
	}
	a.processor.Cancel()
	if a.narrator != nil {
		a.narrator.Close()
	}
	a.mainWin.Close()
}

// render applies the workflow's enabled actions to the controls.
func (a *DetectApp) render() {
	actions := a.ctrl.Actions()
	detecting := a.ctrl.State() == workflow.Detecting

	setEnabled(a.loadBtn, actions.Load)
	setEnabled(a.detectBtn, actions.Detect)
	setEnabled(a.saveBtn, actions.Save)
	setEnabled(a.speakBtn, actions.Speak && a.narrator != nil)

	if detecting {
		a.detectBtn.SetText(a.book.Text("DetectingButton"))
		a.busy.Show()
	} else {
		a.detectBtn.SetText(a.book.Text("DetectButton"))
		a.busy.Hide()
	}

	a.placeholder.Hidden = a.imageCanvas.Image != nil
	a.placeholder.Refresh()
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (a *DetectApp) showOpenDialog() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		a.LoadImage(path)
	}, a.mainWin)

	d.SetFilter(storage.NewExtensionFileFilter(imageio.OpenExtensions))
	if lister := dirLister(a.config.GetLastDir()); lister != nil {
		d.SetLocation(lister)
	}
	d.Show()
}

func (a *DetectApp) showModelDialog() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if reader == nil {
			return
		}
		a.modelEntry.SetText(reader.URI().Path())
		reader.Close()
	}, a.mainWin)

	d.SetFilter(storage.NewExtensionFileFilter([]string{".pt", ".onnx"}))
	d.Show()
}

// LoadImage shows path and resets the workflow to ImageLoaded. A detection in
// flight is cancelled and its outcome ignored.
func (a *DetectApp) LoadImage(path string) error {
	if !imageio.IsOpenable(path) {
		err := fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
		dialog.ShowError(err, a.mainWin)
		return err
	}

	img, err := imageio.Load(path)
	if err != nil {
		a.log.Error("loading image failed", "path", path, "err", err)
		dialog.ShowError(err, a.mainWin)
		return err
	}

	if a.ctrl.LoadImage(path) {
		a.processor.Cancel()
		a.log.Info("detection superseded by new image")
	}

	a.config.SetLastDir(filepath.Dir(path))
	a.showImage(img)
	a.setResultLines(nil)
	a.mainWin.SetTitle(a.book.Text("WindowTitleWithFile", map[string]any{"File": a.ctrl.ImageName()}))
	a.render()

	a.log.Info("image loaded", "path", path)
	return nil
}

// Detect launches detection over the current image with the current settings.
func (a *DetectApp) Detect() {
	job, err := a.ctrl.BeginDetect(a.config.GetModel(), a.config.GetConfidence())
	if err != nil {
		a.log.Warn("detect ignored", "err", err)
		return
	}
	a.render()

	a.log.Info("detection started", "generation", job.Generation, "model", job.Request.Model, "conf", job.Request.Confidence)

	a.processor.Submit(job, func(o detector.Outcome) {
		a.runOnMain(func() { a.finishDetect(o) })
	})
}

func (a *DetectApp) finishDetect(o detector.Outcome) {
	err := a.ctrl.Finish(o)
	switch {
	case errors.Is(err, workflow.ErrStale):
		a.log.Debug("discarding stale detection", "generation", o.Job.Generation)
		return
	case err != nil:
		a.render()
		dialog.ShowError(fmt.Errorf("%s: %w", a.book.Text("DetectFailed"), err), a.mainWin)
		return
	}

	res, _ := a.ctrl.Result()
	tally, _ := a.ctrl.Tally()

	a.showImage(res.Annotated)
	a.setResultLines(a.book.Lines(tally))
	a.latencyLabel.SetText(a.formatLatency(a.processor.Latency()))
	a.render()
}

func (a *DetectApp) formatLatency(v time.Duration) string {
	return a.book.Text("Latency", map[string]any{"Ms": v.Milliseconds()})
}

func (a *DetectApp) showImage(img image.Image) {
	a.imageCanvas.Image = img
	a.imageCanvas.Refresh()
}

func (a *DetectApp) setResultLines(lines []string) {
	a.resultLines = lines
	a.resultList.Refresh()
}

func (a *DetectApp) showSaveDialog() {
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWin)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		a.Save(path)
	}, a.mainWin)

	d.SetFileName(a.ctrl.SaveSuggestion())
	d.SetFilter(storage.NewExtensionFileFilter(imageio.SaveExtensions))
	if lister := dirLister(filepath.Dir(a.ctrl.ImagePath())); lister != nil {
		d.SetLocation(lister)
	}
	d.Show()
}

// Save writes the annotated result near path and reports the outcome to the user.
func (a *DetectApp) Save(path string) (string, error) {
	written, err := a.ctrl.SaveResult(path)
	if err != nil {
		a.log.Error("saving result failed", "path", path, "err", err)
		dialog.ShowError(err, a.mainWin)
		return "", err
	}

	// The save dialog creates the chosen file before we append an extension.
	if written != path {
		if fi, statErr := os.Stat(path); statErr == nil && fi.Size() == 0 {
			os.Remove(path)
		}
	}

	a.log.Info("result saved", "path", written)
	dialog.ShowInformation(a.book.Text("SavedTitle"), a.book.Text("SavedMessage", map[string]any{"Path": written}), a.mainWin)
	return written, nil
}

func (a *DetectApp) Speak() {
	if a.narrator == nil {
		return
	}
	tally, err := a.ctrl.Tally()
	if err != nil {
		a.log.Warn("speak ignored", "err", err)
		return
	}

	text, err := a.narrator.Speak(tally)
	if err != nil {
		a.log.Warn("narration not queued", "err", err)
		return
	}
	a.log.Info("narration queued", "text", text)
}

// RunFatal shows err and quits once the user dismisses it.
func (a *DetectApp) RunFatal(err error) {
	d := dialog.NewError(err, a.mainWin)
	d.SetOnClosed(a.fyneApp.Quit)
	a.mainWin.SetContent(widget.NewLabel(err.Error()))
	a.mainWin.Resize(fyne.NewSize(480, 200))
	d.Show()
	a.mainWin.ShowAndRun()
}

func dirLister(dir string) fyne.ListableURI {
	if dir == "" || dir == "." {
		return nil
	}
	lister, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return lister
}
