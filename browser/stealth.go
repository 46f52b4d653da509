package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
)

// stealthScript builds the anti-detection init script injected before any
// page script runs. It masks the usual headless giveaways and neutralizes
// the dialog/popunder tricks the stream sites lean on.
func stealthScript(cfg Config) string {
	languages := `["ar-EG", "ar", "en-US", "en"]`
	if !strings.HasPrefix(cfg.AcceptLanguage, "ar") {
		languages = `["en-US", "en"]`
	}
	return fmt.Sprintf(`
// Mask webdriver property
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

// Add Chrome runtime object
window.chrome = window.chrome || { runtime: {} };

// Plausible plugin and platform fingerprint
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => %s });
Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });

// Mask permissions query
const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
if (originalQuery) {
    window.navigator.permissions.query = (parameters) => (
        parameters.name === 'notifications'
            ? Promise.resolve({ state: Notification.permission })
            : originalQuery(parameters)
    );
}

// Swallow the dialog and unload traps ad scripts use to hold the page
window.alert = () => {};
window.confirm = () => false;
window.prompt = () => null;
Object.defineProperty(window, 'onbeforeunload', { get() { return null; }, set() {} });
`, languages)
}

// emulateTimezone pins the page clock to the source site's local zone so
// rendered kick-off times match what real visitors see.
func emulateTimezone(ctx context.Context, tz string) error {
	return emulation.SetTimezoneOverride(tz).Do(ctx)
}
