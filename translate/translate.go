// Package translate formats user-facing messages for the user's locale.
package translate

import (
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/message"
)

// DefaultLocale is used when the system reports no locale.
const DefaultLocale = "en-US"

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil || len(locales) == 0 {
		locales = []string{DefaultLocale}
	}

	Use(locales...)
}

// Use selects the best supported match among locales, in preference order.
func Use(locales ...string) {
	if len(locales) == 0 {
		locales = []string{DefaultLocale}
	}
	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From formats an en-US Sprintf() format in the selected locale.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
