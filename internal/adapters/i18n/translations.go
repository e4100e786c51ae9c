// Package i18n renders user-facing strings and French calendar names from
// the embedded message catalogue.
package i18n

import (
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// DefaultLocale is the only locale the site ships with.
const DefaultLocale = "fr"

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// NewTranslator builds a Translator for locale, falling back to French.
// PRE: the embedded catalogue for DefaultLocale is valid TOML
// POST: Returns a ready translator or the catalogue load error
func NewTranslator(locale string) (*Translator, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	bundle := i18n.NewBundle(language.French)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if _, err := bundle.LoadMessageFileFS(localeFS, "active."+DefaultLocale+".toml"); err != nil {
		return nil, fmt.Errorf("load message catalogue: %w", err)
	}
	return &Translator{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String(), DefaultLocale),
	}, nil
}

// T renders the message identified by key. Unknown keys render as the key
// itself so a missing translation is visible but never fatal.
func (t *Translator) T(key string, data map[string]any) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("i18n_localize_failed", "key", key, "error", err)
		return key
	}
	return msg
}

// Plural renders a message with one/other forms selected by count.
// Count is available to the template as {{.Count}}.
func (t *Translator) Plural(key string, count int, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	data["Count"] = count
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		PluralCount:  count,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("i18n_localize_failed", "key", key, "error", err)
		return key
	}
	return msg
}

// MonthName returns the full month name, e.g. "mars".
func (t *Translator) MonthName(d time.Time) string {
	return t.T("month_"+strconv.Itoa(int(d.Month())), nil)
}

// WeekdayName returns the weekday name, e.g. "lundi".
func (t *Translator) WeekdayName(d time.Time) string {
	return t.T("weekday_"+strconv.Itoa(int(d.Weekday())), nil)
}

// LongDate formats a civil date as "lundi 3 mars 2026".
func (t *Translator) LongDate(d time.Time) string {
	return fmt.Sprintf("%s %d %s %d", t.WeekdayName(d), d.Day(), t.MonthName(d), d.Year())
}

// DayMonthYear formats a civil date as "3 mars 2026".
func (t *Translator) DayMonthYear(d time.Time) string {
	return fmt.Sprintf("%d %s %d", d.Day(), t.MonthName(d), d.Year())
}

// DayMonth formats a civil date as "3 mars".
func (t *Translator) DayMonth(d time.Time) string {
	return fmt.Sprintf("%d %s", d.Day(), t.MonthName(d))
}

// ShortDayMonth formats a civil date as "3 févr.".
func (t *Translator) ShortDayMonth(d time.Time) string {
	return fmt.Sprintf("%d %s", d.Day(), t.T("month_short_"+strconv.Itoa(int(d.Month())), nil))
}

// DateTime formats an instant in loc as "3 mars 2026 à 14:05".
func (t *Translator) DateTime(ts time.Time, loc *time.Location) string {
	if loc != nil {
		ts = ts.In(loc)
	}
	return t.T("datetime_at", map[string]any{"Date": t.DayMonthYear(ts), "Time": ts.Format("15:04")})
}

// Price formats an amount the French way without trailing zeros: 15, 12,5.
func Price(p float64) string {
	return strings.Replace(strconv.FormatFloat(p, 'f', -1, 64), ".", ",", 1)
}
