package fetcher

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// evasionScript patches common headless-detection signals before page
// scripts run. Based on the puppeteer-extra-plugin-stealth evasion set.
const evasionScript = `
(function() {
    'use strict';
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    try { delete Object.getPrototypeOf(navigator).webdriver; } catch (e) {}

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['en-US', 'en']),
        configurable: true
    });

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', { value: {}, writable: true, enumerable: true, configurable: false });
    }

    try {
        const originalQuery = Permissions.prototype.query;
        Permissions.prototype.query = function(parameters) {
            if (parameters.name === 'notifications') {
                return Promise.resolve({ state: Notification.permission });
            }
            return originalQuery.call(this, parameters);
        };
    } catch (e) {}

    if (navigator.hardwareConcurrency === 0 || navigator.hardwareConcurrency === undefined) {
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 4, configurable: true });
    }
})();
`

// newStealthPage opens a page with go-rod/stealth's evasions applied, plus
// the extra evasionScript injected before the document's own scripts run.
func newStealthPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, err
	}
	if _, err := page.EvalOnNewDocument(evasionScript); err != nil {
		page.Close()
		return nil, err
	}
	return page, nil
}
