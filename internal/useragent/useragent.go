// Package useragent derives the session's client metadata from a User-Agent header.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is the client metadata stored on a session row.
type Info struct {
	OS      string
	Device  string
	Browser string
}

// Parse extracts OS, device and browser from ua. Unknown parts are empty.
func Parse(ua string) Info {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return Info{}
	}
	p := useragent.New(ua)
	browser, _ := p.Browser()

	device := p.Platform()
	switch {
	case p.Bot():
		device = "Bot"
	case device == "" && p.Mobile():
		device = "Mobile"
	case device == "":
		device = "Desktop"
	}
	return Info{OS: p.OS(), Device: device, Browser: browser}
}
