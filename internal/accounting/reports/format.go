package reports

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// supportedLocales are the display locales report views can be rendered in.
// The first entry is the fallback.
var supportedLocales = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.Indonesian,
	language.German,
	language.French,
	language.Japanese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Formatter renders amounts for display. It is the only place amounts are
// rounded; reports themselves stay exact.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a formatter for tag.
func NewFormatter(tag language.Tag) Formatter {
	return Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// FormatterFor picks the best supported locale for an Accept-Language header.
func FormatterFor(acceptLanguage string) Formatter {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return NewFormatter(supportedLocales[0])
	}
	_, idx, _ := localeMatcher.Match(tags...)
	return NewFormatter(supportedLocales[idx])
}

// Locale returns the BCP 47 tag in use.
func (f Formatter) Locale() string {
	return f.tag.String()
}

// Amount rounds to cents and groups digits per locale.
func (f Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Date renders a report date.
func (f Formatter) Date(t time.Time) string {
	return t.Format("2006-01-02")
}
