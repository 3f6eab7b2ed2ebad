package core

import "strings"

type classifyRule struct {
	kind    FailureKind
	needles []string
}

// Rule order is part of the contract: specific hardware faults match
// before generic connectivity, and the first matching rule wins.
var classifyRules = []classifyRule{
	{KindPaperJam, []string{"paper jam", "jam"}},
	{KindNoPaper, []string{"out of paper", "no paper", "paper empty", "load paper"}},
	{KindNoInk, []string{"out of ink", "no ink", "ink empty", "replace cartridge"}},
	{KindLowInk, []string{"low ink", "ink low", "low on ink"}},
	{KindPrinterOffline, []string{"offline", "not responding", "unreachable", "powered off"}},
	{KindConnectionError, []string{"connection", "connect", "timeout", "timed out", "network", "refused"}},
}

func Classify(raw string) FailureKind {
	msg := strings.ToLower(raw)
	for _, rule := range classifyRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.kind
			}
		}
	}
	return KindUnknown
}
