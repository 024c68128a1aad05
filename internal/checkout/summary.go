package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/shopspring/decimal"
)

// FormatRupees renders an amount the way en-IN locales do: lakh/crore digit
// grouping and up to three fraction digits, e.g. 1234567.5 -> "12,34,567.5".
func FormatRupees(amount decimal.Decimal) string {
	amount = amount.Round(3)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	s := amount.String()
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	if len(intPart) <= 3 {
		b.WriteString(intPart)
	} else {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		lead := len(head) % 2
		if lead > 0 {
			b.WriteString(head[:lead])
		}
		for i := lead; i < len(head); i += 2 {
			if b.Len() > len(sign) {
				b.WriteByte(',')
			}
			b.WriteString(head[i : i+2])
		}
		b.WriteByte(',')
		b.WriteString(tail)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Summary is the human readable order text sent to the shop's messaging account.
func Summary(form Form, items cart.Cart) string {
	var b strings.Builder
	b.WriteString("New Saree Order\n\n")
	fmt.Fprintf(&b, "Name: %s\n", form.CustomerName)
	fmt.Fprintf(&b, "Email: %s\n", form.Email)
	fmt.Fprintf(&b, "Phone: %s\n\n", form.Phone)
	fmt.Fprintf(&b, "Address:\n%s\n\n", form.Address)
	b.WriteString("Items:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%s x%d - ₹%s\n", it.Name, it.Quantity, FormatRupees(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: ₹%s", FormatRupees(items.Total()))
	return b.String()
}

// WhatsAppLink builds a wa.me deep link pre-filled with text.
func WhatsAppLink(phone, text string) string {
	if phone == "" {
		return ""
	}
	return "https://wa.me/" + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
