package digest

import (
	"fmt"
	"strings"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/internal/pkg/constants"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
	"github.com/tomsflightclub/flightclub/internal/pkg/env"
)

// RenderDigestEmail builds the subject and HTML body for one digest. The
// body is assembled by hand; deal fields are server-controlled so no user
// input reaches the markup.
func RenderDigestEmail(user *models.User, plan entitlements.Plan, dig *Digest) (subject, body string) {
	total := len(dig.Visible) + len(dig.Locked)
	origin := user.HomeCity
	if origin == "" {
		origin = "your airports"
	}

	if total == 1 {
		subject = fmt.Sprintf("1 new flight deal from %s", origin)
	} else {
		subject = fmt.Sprintf("%d new flight deals from %s", total, origin)
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")

	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(fmt.Sprintf("<h2>Hi %s, here are your latest deals</h2>", user.Name))

	b.WriteString("<ul>")
	for _, deal := range dig.Visible {
		b.WriteString("<li>")
		b.WriteString(formatDeal(&deal))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")

	if len(dig.Locked) > 0 {
		if plan == entitlements.PlanPremium {
			b.WriteString(fmt.Sprintf("<p>Plus %d more deals on the site.</p>", len(dig.Locked)))
		} else {
			b.WriteString(fmt.Sprintf("<p><strong>%d more deals are waiting for premium members:</strong></p>", len(dig.Locked)))
			b.WriteString("<ul>")
			for _, deal := range dig.Locked {
				b.WriteString(fmt.Sprintf("<li>%s to %s &mdash; members only</li>", deal.OriginCity, deal.DestinationCity))
			}
			b.WriteString("</ul>")
			b.WriteString(fmt.Sprintf(`<p><a href="%s%s">Upgrade to premium</a> to unlock every deal.</p>`, base, constants.UpgradeRoute))
		}
	}

	b.WriteString(fmt.Sprintf(`<p style="font-size:small"><a href="%s%s?token=%d">Unsubscribe</a></p>`, base, constants.UnsubscribeRoute, user.ID))
	b.WriteString("</body></html>")

	return subject, b.String()
}

func formatDeal(d *models.Deal) string {
	return fmt.Sprintf("%s (%s) to %s (%s) for %s",
		d.OriginCity, d.OriginAirport,
		d.DestinationCity, d.DestinationAirport,
		FormatPrice(d.PriceMinor, d.Currency),
	)
}

// FormatPrice renders minor units as a decimal amount with currency code.
func FormatPrice(minor int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minor)/100, strings.ToUpper(currency))
}
