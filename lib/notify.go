// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"github.com/gen2brain/beeep"
	"github.com/pkg/browser"
)

// NotifyFunc raises a desktop notification.
type NotifyFunc func(summary, body string) error

// OpenURLFunc opens a URL in the operator's browser.
type OpenURLFunc func(url string) error

// DesktopNotify is the default Notify capability.
func DesktopNotify(summary, body string) error {
	return beeep.Notify(summary, body, "")
}

// OpenBrowser is the default OpenURL capability.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}
