// Package device turns a raw User-Agent into a short description of the
// submitting terminal.
package device

import (
	"github.com/mssola/useragent"
)

// Unknown is reported when the User-Agent is empty or unparseable.
const Unknown = "Unknown Device"

// Describe returns "<browser> on <os>" for the given User-Agent, falling back
// to the bare browser name, the OS, or Unknown.
func Describe(userAgent string) string {
	if userAgent == "" {
		return Unknown
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()

	switch {
	case ua.Bot():
		if browser != "" {
			return browser + " (bot)"
		}
		return Unknown
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return Unknown
	}
}
