package intake

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/partsbot/core/telegram/format"
	"github.com/m3rciful/partsbot/internal/orders"
)

// Reply keyboard labels. They double as text aliases for the menu commands.
const (
	MenuStart    = "🔍 Start parts search"
	MenuAbout    = "ℹ️ About"
	MenuMyOrders = "📋 My orders"
	MenuBack     = "⬅️ Main menu"
)

const (
	textMainMenu = "Main menu:"
	textAbout    = "We offer:\n\n" +
		"✅ Original and aftermarket parts sourcing\n" +
		"✅ Private and business customers\n" +
		"✅ Delivery across Crimea\n" +
		"✅ Quality guarantee\n\n" +
		"Average sourcing time is 1-2 hours"
	promptCar     = "Enter your vehicle details (make, model, year, engine size):"
	promptParts   = "Which parts do you need? List names or part numbers:"
	promptContact = "Your phone number or Telegram handle for contact:"
	promptCity    = "Which city in Crimea should we deliver to?"
	textConfirmed = "✅ Your order has been received! We will contact you within 1-2 hours."
	textNoOrders  = "You have no orders yet."
)

// captionLimit is Telegram's media caption limit, in characters.
const captionLimit = 1024

const dateLayout = "02.01.2006 15:04"

var (
	mainMenuKeyboard  = [][]string{{MenuStart}, {MenuAbout}, {MenuMyOrders}}
	aboutKeyboard     = [][]string{{MenuStart}, {MenuBack}}
	backKeyboard      = [][]string{{MenuBack}}
	confirmedKeyboard = [][]string{{MenuMyOrders}, {MenuBack}}
)

func promptPhotoOrVIN(skip string) string {
	return fmt.Sprintf("Attach a photo of the part or send the VIN (or type %q):", skip)
}

// AdminSummary renders the order card administrators receive.
func AdminSummary(o orders.Order) string {
	return strings.Join(summaryLines(o), "\n")
}

func summaryLines(o orders.Order) []string {
	return []string{
		fmt.Sprintf("New order #%s\n", o.RequestID),
		fmt.Sprintf("👤 Customer: %d", o.CustomerID),
		"🚗 Car: " + o.Car,
		"🔧 Parts: " + o.Parts,
		"📞 Contact: " + o.Contact,
		"📍 City: " + o.City,
	}
}

// adminText is the text-only order card, split into as many messages as the
// answers need. Only the last chunk should carry the claim button.
func adminText(o orders.Order) []string {
	lines := append(summaryLines(o), "📷 VIN/Photo: "+o.PhotoOrVIN.Value)
	return format.JoinBlocks(lines, "\n", format.MaxMessageLen)
}

func adminCaption(o orders.Order) string {
	s := AdminSummary(o)
	if c := strings.TrimSpace(o.PhotoOrVIN.Caption); c != "" {
		s += "\n💬 Caption: " + c
	}
	return truncate(s, captionLimit)
}

// OrderBlock renders the n-th (1-based) entry of a customer's order list.
func OrderBlock(n int, o orders.Order) string {
	return fmt.Sprintf("Order #%d\n"+
		"🆔 ID: %s\n"+
		"🚗 Car: %s\n"+
		"🔧 Parts: %s\n"+
		"📞 Contact: %s\n"+
		"📍 City: %s\n"+
		"📦 Status: %s\n"+
		"📅 Date: %s UTC\n"+
		"–––––––––––––––––––––––––",
		n, o.RequestID, o.Car, o.Parts, o.Contact, o.City, o.Status.Label(),
		o.CreatedAt.UTC().Format(dateLayout))
}

func ordersHeader(n int) string {
	return fmt.Sprintf("Your orders (%d):", n)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
