package paywall

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/media-monitor/app/config"
	"github.com/lysyi3m/media-monitor/app/feed"
)

const testMinContentLength = 200

func articleHTML(title string, paragraphs int, extra string) string {
	var body strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&body, "<p>Alinea %d. Het ziekenhuis onderzoekt hoe kunstmatige intelligentie artsen kan helpen bij het stellen van diagnoses, en welke risico's daarbij horen voor patiënten en zorgverleners.</p>\n", i+1)
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>%s</title></head><body>%s<article><h1>%s</h1>%s</article></body></html>`,
		title, extra, title, body.String())
}

func errorPageHTML() string {
	return `<!DOCTYPE html><html><head><title>404 Not Found</title></head><body><h1>Not Found</h1><p>The requested page could not be found on this server.</p></body></html>`
}

func newTestResolver(services []config.BypassService, onTransition func(Transition)) *Resolver {
	return NewResolver(&http.Client{}, services, feed.NewContentExtractor(), ResolverOptions{
		MinContentLength: testMinContentLength,
		BackoffInitial:   time.Millisecond,
		UserAgent:        "Media Monitor/test",
		OnTransition:     onTransition,
	})
}
