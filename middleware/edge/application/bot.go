package application

import "strings"

// DefaultBotSignatures são assinaturas de crawlers de busca e de preview de links.
var DefaultBotSignatures = []string{
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"applebot",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"whatsapp",
	"slackbot",
	"discordbot",
	"telegrambot",
}

// BotClassifier só anota: nunca libera nem bloqueia nada.
type BotClassifier struct {
	signatures []string
}

func NewBotClassifier(signatures []string) *BotClassifier {
	if len(signatures) == 0 {
		signatures = DefaultBotSignatures
	}
	b := &BotClassifier{signatures: make([]string, 0, len(signatures))}
	for _, s := range signatures {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			b.signatures = append(b.signatures, s)
		}
	}
	return b
}

func (b *BotClassifier) IsBot(userAgent string) bool {
	if b == nil || userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, s := range b.signatures {
		if strings.Contains(ua, s) {
			return true
		}
	}
	return false
}
