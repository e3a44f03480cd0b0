package router

import (
	"regexp"
	"strings"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// keywordRules is the deterministic rule table used when the model is
// unreachable. First rule with the most hits wins; no hits means Support.
var keywordRules = []struct {
	specialist domain.Specialist
	keywords   []string
}{
	{domain.SpecialistOrder, []string{
		"order", "delivery", "deliver", "shipping", "shipped", "track",
		"tracking", "package", "arrive", "cancel",
	}},
	{domain.SpecialistBilling, []string{
		"refund", "invoice", "charge", "charged", "payment", "bill",
		"billing", "receipt", "money back",
	}},
}

var (
	orderIDPattern   = regexp.MustCompile(`\bORD-[A-Za-z0-9-]+\b`)
	invoiceIDPattern = regexp.MustCompile(`\bINV-[A-Za-z0-9-]+\b`)
)

// fallbackClassify classifies a message by keyword matching. Produces a
// decision with the fixed degraded-mode confidence and a rationale noting
// degraded mode.
func fallbackClassify(message string, confidence float64) *domain.RoutingDecision {
	lower := strings.ToLower(message)

	best := domain.SpecialistSupport
	bestHits := 0
	for _, rule := range keywordRules {
		hits := 0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = rule.specialist
			bestHits = hits
		}
	}

	return &domain.RoutingDecision{
		Specialist: best,
		Confidence: confidence,
		Rationale:  "degraded mode: model unavailable, classified by keyword rules",
		Entities:   extractEntities(message),
		Degraded:   true,
	}
}

// extractEntities pulls order and invoice references out of the message text.
func extractEntities(message string) domain.Entities {
	var entities domain.Entities
	if m := orderIDPattern.FindString(message); m != "" {
		entities.OrderID = &m
	}
	if m := invoiceIDPattern.FindString(message); m != "" {
		entities.InvoiceID = &m
	}
	return entities
}
