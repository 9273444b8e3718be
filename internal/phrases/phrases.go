// Package phrases holds the user-facing and spoken text in every supported language.
package phrases

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeandeaual/go-locale"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"imagedetect/internal/models"
)

//go:embed locales/*.toml
var catalogs embed.FS

var supported = []string{"locales/active.en.toml", "locales/active.vi.toml"}

type Book struct {
	localizer *i18n.Localizer
	tag       language.Tag
}

// New builds a phrase book for lang. An empty lang uses the system locale.
func New(lang string) (*Book, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, path := range supported {
		if _, err := bundle.LoadMessageFileFS(catalogs, path); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", path, err)
		}
	}

	if lang == "" {
		lang = SystemLanguage()
	}

	tag, _, _ := language.NewMatcher(bundle.LanguageTags()).Match(language.Make(lang))
	base, _ := tag.Base()

	return &Book{
		localizer: i18n.NewLocalizer(bundle, lang),
		tag:       language.Make(base.String()),
	}, nil
}

// MustNew is New for the embedded catalogs, which are known to parse.
func MustNew(lang string) *Book {
	b, err := New(lang)
	if err != nil {
		panic(err)
	}
	return b
}

func SystemLanguage() string {
	loc, err := locale.GetLocale()
	if err != nil || loc == "" {
		return "en"
	}
	return loc
}

// Tag is the base language the book resolved to, e.g. "vi".
func (b *Book) Tag() language.Tag {
	return b.tag
}

func (b *Book) Text(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	s, err := b.localizer.Localize(cfg)
	if err != nil {
		return id
	}
	return s
}

// Lines renders the result list: a header with the total, then one row per class.
func (b *Book) Lines(t models.Tally) []string {
	lines := make([]string, 0, len(t.Counts)+1)
	lines = append(lines, b.Text("ListHeader", map[string]any{"Total": t.Total}))
	for _, c := range t.Counts {
		lines = append(lines, b.Text("ListItem", map[string]any{"Class": c.Class, "Count": c.Count}))
	}
	return lines
}

// Narration is the sentence handed to the voice engine.
func (b *Book) Narration(t models.Tally) string {
	items := make([]string, 0, len(t.Counts))
	for _, c := range t.Counts {
		items = append(items, b.Text("NarrationItem", map[string]any{"Class": c.Class, "Count": c.Count}))
	}
	return b.Text("Narration", map[string]any{
		"Total": t.Total,
		"Items": strings.Join(items, ", "),
	})
}
