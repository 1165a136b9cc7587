package leadcapture

import (
	"fmt"
	"strings"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// maxListedProducts bounds the product names quoted in a capture prompt.
const maxListedProducts = 3

const contactConfirmation = "✅ Parfait ! J'ai bien reçu vos informations. Je vais vous contacter très prochainement pour un suivi personnalisé !"

func followUpMessage(missing []string) string {
	switch len(missing) {
	case 0:
		return contactConfirmation
	case 1:
		return fmt.Sprintf("Merci ! Il me manque juste votre %s. Pouvez-vous me le fournir ?", missing[0])
	default:
		list := strings.Join(missing[:len(missing)-1], ", ") + " et " + missing[len(missing)-1]
		return fmt.Sprintf("Merci ! Il me manque encore votre %s. Pouvez-vous me les fournir ?", list)
	}
}

const contactForm = "📝 **Your contact info:**\n" +
	"• Full name:\n" +
	"• Email address:\n" +
	"• Phone number:\n"

const replyPrompt = "\n💬 **Just reply with your information above!**"

func leadCaptureMessage(level domain.InterestLevel, products []string) string {
	if len(products) > maxListedProducts {
		products = products[:maxListedProducts]
	}
	names := strings.Join(products, ", ")

	var b strings.Builder
	switch level {
	case domain.InterestHigh:
		b.WriteString("🎉 Excellent! I see you're very interested in our products")
		if names != "" {
			b.WriteString(" like " + names)
		}
		b.WriteString("! To offer you the best service and keep you informed of promotions, ")
		b.WriteString("I'd need a few details from you:\n\n")
		b.WriteString(contactForm)
		b.WriteString("\nOnce we have this, I can:\n")
		b.WriteString("✅ Send you personalized offers\n")
		b.WriteString("✅ Contact you for personalized follow-up\n")
		b.WriteString("✅ Inform you about new promotions\n")
		b.WriteString("✅ Answer all your questions in detail\n")
		b.WriteString(replyPrompt)
	default:
		b.WriteString("😊 Great! I see you're interested")
		if names != "" {
			b.WriteString(" in " + names)
		}
		b.WriteString(". Could you please share your contact details so we can follow up?\n")
		b.WriteString(contactForm)
		b.WriteString(replyPrompt)
	}
	return b.String()
}
