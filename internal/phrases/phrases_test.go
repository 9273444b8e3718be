package phrases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"imagedetect/internal/models"
)

func catDog() models.Tally {
	return models.Tally{
		Counts: []models.ClassCount{{Class: "cat", Count: 2}, {Class: "dog", Count: 1}},
		Total:  3,
	}
}

func TestNarrationEmpty(t *testing.T) {
	b, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "Detected 0 objects. Including: ", b.Narration(models.Tally{}))
}

func TestNarrationEnglish(t *testing.T) {
	b := MustNew("en")

	assert.Equal(t, "Detected 3 objects. Including: 2 cat, 1 dog", b.Narration(catDog()))
}

func TestNarrationVietnamese(t *testing.T) {
	b := MustNew("vi-VN")

	assert.Equal(t, "vi", b.Tag().String())
	assert.Equal(t, "Đã phát hiện 3 đối tượng. Bao gồm: 2 cat, 1 dog", b.Narration(catDog()))
}

func TestLinesKeepFirstSeenOrder(t *testing.T) {
	b := MustNew("en")

	assert.Equal(t, []string{"Detected 3 objects:", "- cat: 2", "- dog: 1"}, b.Lines(catDog()))
	assert.Equal(t, []string{"Detected 0 objects:"}, b.Lines(models.Tally{}))
}

func TestUnsupportedLanguageFallsBackToEnglish(t *testing.T) {
	b := MustNew("de")

	assert.Equal(t, language.English.String(), b.Tag().String())
	assert.Equal(t, "Detect", b.Text("DetectButton"))
}

func TestUnknownMessageReturnsID(t *testing.T) {
	assert.Equal(t, "NoSuchMessage", MustNew("en").Text("NoSuchMessage"))
}

func TestTemplateText(t *testing.T) {
	b := MustNew("en")
	assert.Equal(t, "Object detection - cat.jpg", b.Text("WindowTitleWithFile", map[string]any{"File": "cat.jpg"}))
}
