package cwidget

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestFloatInputAcceptsValue(t *testing.T) {
	test.NewTempApp(t)

	var got float64
	in := NewFloatInput("Confidence", "0.0 - 1.0", 0.25, 0, 1, func(v float64) { got = v })
	assert.Equal(t, "Confidence: 0.25", in.Caption())

	in.SetText("0,6")

	assert.InDelta(t, 0.6, got, 1e-9)
	assert.InDelta(t, 0.6, in.Value, 1e-9)
	assert.Equal(t, "Confidence: 0.60", in.Caption())
	assert.Empty(t, in.ErrorText())
}

func TestFloatInputRejectsOutOfRange(t *testing.T) {
	test.NewTempApp(t)

	calls := 0
	in := NewFloatInput("Confidence", "", 0.25, 0, 1, func(float64) { calls++ })

	in.SetText("1.5")
	assert.Zero(t, calls)
	assert.Contains(t, in.ErrorText(), "between")
	assert.Equal(t, "Confidence: 0.25", in.Caption())

	in.SetText("abc")
	assert.Contains(t, in.ErrorText(), "not a number")

	in.SetText("")
	assert.Equal(t, 1, calls, "empty entry falls back to the default")
	assert.Empty(t, in.ErrorText())
}
