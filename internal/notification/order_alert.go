package notification

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

// NewOrderAlert renders the operator alert in the format the storefront has
// always sent. ParseNewOrderAlert reads it back.
func NewOrderAlert(o entity.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 <b>Новый заказ #%s</b>\n\n", Escape(o.ID))
	fmt.Fprintf(&b, "👤 %s\n", Escape(o.Customer.Name))
	fmt.Fprintf(&b, "📱 %s\n", Escape(o.Customer.Phone))
	if o.Customer.Region != "" {
		fmt.Fprintf(&b, "🗺 %s\n", Escape(o.Customer.Region))
	}
	if o.Customer.City != "" {
		fmt.Fprintf(&b, "🏙 %s\n", Escape(o.Customer.City))
	}
	fmt.Fprintf(&b, "📍 %s\n", Escape(o.Customer.Address))
	if o.Comment != "" {
		fmt.Fprintf(&b, "💬 %s\n", Escape(o.Comment))
	}
	b.WriteString("\n📦 <b>Товары:</b>\n")
	for i, it := range o.Items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  • %s (%s) × %d = %s", Escape(it.Name), Escape(it.Brand), it.Quantity, FormatRub(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\n\n💰 <b>Итого: %s</b>\n", FormatRub(o.Total))
	tg := "N/A"
	if o.TelegramID != 0 {
		tg = strconv.FormatInt(o.TelegramID, 10)
	}
	fmt.Fprintf(&b, "🆔 Telegram: %s", tg)
	return b.String()
}

var (
	alertIDRe      = regexp.MustCompile(`Новый заказ #(CT[\w-]+)`)
	alertNameRe    = regexp.MustCompile(`👤\s*(.+)`)
	alertPhoneRe   = regexp.MustCompile(`📱\s*(.+)`)
	alertRegionRe  = regexp.MustCompile(`🗺\s*(.+)`)
	alertCityRe    = regexp.MustCompile(`🏙\s*(.+)`)
	alertAddrRe    = regexp.MustCompile(`📍\s*(.+)`)
	alertCommentRe = regexp.MustCompile(`💬\s*(.+)`)
	alertTotalRe   = regexp.MustCompile(`Итого:\s*([\d\s,.]+)\s*₽`)
	alertTGRe      = regexp.MustCompile(`Telegram:\s*(\d+|N/A)`)
	alertItemRe    = regexp.MustCompile(`•\s*(.+?)\s*\((.+?)\)\s*×\s*(\d+)\s*=\s*([\d\s,.]+)\s*₽`)
	tagRe          = regexp.MustCompile(`<[^>]+>`)
)

// ParseNewOrderAlert is a best-effort reader; ok is false when the text
// does not carry an order marker.
func ParseNewOrderAlert(text string, now time.Time) (entity.Order, bool) {
	plain := html.UnescapeString(tagRe.ReplaceAllString(text, ""))
	m := alertIDRe.FindStringSubmatch(plain)
	if m == nil {
		return entity.Order{}, false
	}

	o := entity.Order{
		ID:     m[1],
		Status: entity.OrderPending,
		Customer: entity.Customer{
			Name:    firstGroup(alertNameRe, plain),
			Phone:   firstGroup(alertPhoneRe, plain),
			Region:  firstGroup(alertRegionRe, plain),
			City:    firstGroup(alertCityRe, plain),
			Address: firstGroup(alertAddrRe, plain),
		},
		Comment:   firstGroup(alertCommentRe, plain),
		Total:     parseAmount(firstGroup(alertTotalRe, plain)),
		Items:     []entity.OrderItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tg := firstGroup(alertTGRe, plain); tg != "" && tg != "N/A" {
		o.TelegramID, _ = strconv.ParseInt(tg, 10, 64)
	}

	for _, im := range alertItemRe.FindAllStringSubmatch(plain, -1) {
		qty, err := strconv.Atoi(im[3])
		if err != nil || qty <= 0 {
			continue
		}
		sum := parseAmount(im[4])
		o.Items = append(o.Items, entity.OrderItem{
			Name:     strings.TrimSpace(im[1]),
			Brand:    strings.TrimSpace(im[2]),
			Price:    roundDiv(sum, int64(qty)),
			Quantity: qty,
		})
	}
	return o, true
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseAmount drops grouping characters: "4 500" -> 4500.
func parseAmount(raw string) int64 {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func roundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
