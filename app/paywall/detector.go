package paywall

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var errorMarkers = []string{
	"404",
	"not found",
	"niet gevonden",
	"access denied",
	"toegang geweigerd",
	"captcha",
	"no results",
	"geen resultaten",
	"just a moment",
}

const paywallSelector = `[class*="paywall"], [id*="paywall"], [data-paywall], ` +
	`[class*="subscriber-only"], [class*="subscribers-only"], [class*="premium-content"], [class*="abonnee"]`

var paywallPhrases = []string{
	"log in om verder te lezen",
	"word abonnee",
	"alleen voor abonnees",
	"subscribe to continue reading",
	"subscribers only",
}

// Inspection summarizes what a fetched HTML page looks like
type Inspection struct {
	Title     string
	ErrorPage bool
	Paywalled bool
}

func Inspect(data []byte) (Inspection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Inspection{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var result Inspection
	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	headings := []string{strings.ToLower(result.Title)}
	doc.Find("h1").Each(func(i int, s *goquery.Selection) {
		headings = append(headings, strings.ToLower(s.Text()))
	})
	for _, heading := range headings {
		if containsAny(heading, errorMarkers) {
			result.ErrorPage = true
			break
		}
	}

	if doc.Find(paywallSelector).Length() > 0 {
		result.Paywalled = true
	} else if containsAny(strings.ToLower(doc.Find("body").Text()), paywallPhrases) {
		result.Paywalled = true
	}

	return result, nil
}

// BlockedStatus reports statuses that indicate a paywall or a bot wall
func BlockedStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusUnavailableForLegalReasons:
		return true
	}
	return false
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
